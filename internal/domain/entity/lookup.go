package entity

// Airline is the display record for a carrier code
type Airline struct {
	Code string
	Name string
}

// Airport holds the display names and timezone of an airport
type Airport struct {
	AirportCode string
	AirportName string
	CityCode    string
	CityName    string
	TzName      string
}

// Label renders "Name | City", or just the name when the city is unknown.
func (a *Airport) Label() string {
	if a.CityName == "" || a.CityName == a.AirportName {
		return a.AirportName
	}
	return a.AirportName + " | " + a.CityName
}
