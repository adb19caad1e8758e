package nav

import "stockmaster/models"

// Link is one entry in the top navigation.
type Link struct {
	Label string
	Href  string
}

// TopNavData is shared with page renderers.
type TopNavData struct {
	Name      string
	Role      string
	Protected bool
	Links     []Link
}

func BuildTopNavData(session models.Session) TopNavData {
	links := []Link{
		{Label: "Dashboard", Href: "/dashboard"},
		{Label: "Products", Href: "/api/products"},
		{Label: "Movements", Href: "/api/movements"},
	}
	if session.User.IsAdmin() {
		links = append(links,
			Link{Label: "Users", Href: "/api/users"},
			Link{Label: "System logs", Href: "/api/system-logs"},
		)
	}
	return TopNavData{
		Name:      session.User.Name,
		Role:      session.User.Role,
		Protected: session.User.Protected,
		Links:     links,
	}
}
