package reconciler

import (
	"fmt"
	"slices"
)

const salesSearchUrl = "https://salesweb.civilview.com/Sales/SalesSearch?countyId=%d"

type County struct {
	Id int `json:"id"`
	// defaults to the civilview sales search page for Id
	Url string `json:"url,omitempty"`
}

func (c County) PageUrl() string {
	if c.Url != "" {
		return c.Url
	}
	return fmt.Sprintf(salesSearchUrl, c.Id)
}

// Counties maps a county's display name to its sales page, lookups are exact
// and case sensitive.
type Counties map[string]County

func DefaultCounties() Counties {
	return Counties{
		"Camden":   {Id: 1},
		"Essex":    {Id: 2},
		"Bergen":   {Id: 7},
		"Monmouth": {Id: 8},
		"Morris":   {Id: 9},
		"Hudson":   {Id: 10},
		"Union":    {Id: 15},
	}
}

func (c Counties) Lookup(name string) (County, bool) {
	county, ok := c[name]
	return county, ok
}

func (c Counties) Names() []string {
	names := make([]string, 0, len(c))
	for name := range c {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
