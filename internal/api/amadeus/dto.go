package amadeus

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

type locationsResponse struct {
	Data []Location `json:"data"`
}

// Location is an entry of the city search. IataCode is empty for cities without an airport code.
type Location struct {
	Name     string `json:"name"`
	IataCode string `json:"iataCode"`
	Address  struct {
		CountryCode string `json:"countryCode"`
	} `json:"address"`
}

type flightOffersResponse struct {
	Data []FlightOffer `json:"data"`
}

type FlightOffer struct {
	ID                     string      `json:"id"`
	ValidatingAirlineCodes []string    `json:"validatingAirlineCodes"`
	Price                  Price       `json:"price"`
	Itineraries            []Itinerary `json:"itineraries"`
}

type Price struct {
	Total      string `json:"total"`
	GrandTotal string `json:"grandTotal"`
	Currency   string `json:"currency"`
}

type Itinerary struct {
	Duration string    `json:"duration"`
	Segments []Segment `json:"segments"`
}

type Segment struct {
	Departure   Endpoint `json:"departure"`
	Arrival     Endpoint `json:"arrival"`
	CarrierCode string   `json:"carrierCode"`
	Number      string   `json:"number"`
}

type Endpoint struct {
	IataCode string `json:"iataCode"`
	At       string `json:"at"`
}

type hotelsResponse struct {
	Data []Hotel `json:"data"`
}

type Hotel struct {
	HotelID  string `json:"hotelId"`
	Name     string `json:"name"`
	IataCode string `json:"iataCode"`
	GeoCode  struct {
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
	} `json:"geoCode"`
	Address struct {
		Lines       []string `json:"lines"`
		CityName    string   `json:"cityName"`
		CountryCode string   `json:"countryCode"`
	} `json:"address"`
}
