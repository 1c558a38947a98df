package navigation

// Control is a button's presentation state.
type Control struct {
	Visible bool   `json:"visible"`
	Enabled bool   `json:"enabled"`
	Label   string `json:"label"`
}

// View is everything a surface needs to draw a session.
type View struct {
	Variant       Variant    `json:"variant"`
	State         State      `json:"state"`
	Mode          TravelMode `json:"mode"`
	Start         *GeoPoint  `json:"start,omitempty"`
	Finish        *GeoPoint  `json:"finish,omitempty"`
	FollowEnabled bool       `json:"follow_enabled"`
	Following     bool       `json:"following"`
	StartStop     Control    `json:"start_stop"`
	Camera        Control    `json:"camera"`
	RouteInfo     RouteInfo  `json:"route_info"`
	// OutOfArea is set when the last fix lies outside the map area, Caution
	// when it lies outside the caution area.
	OutOfArea bool `json:"out_of_area"`
	Caution   bool `json:"caution"`
}

const (
	labelStart    = "Start navigation"
	labelStop     = "Stop navigation"
	labelFollow   = "Follow"
	labelOverview = "Overview"
)
