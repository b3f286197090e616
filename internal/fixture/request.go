package fixture

import "strings"

// Item asks for Count values of the template called Template.
// One item per requested template per invocation.
type Item struct {
	Template string `yaml:"template" json:"template"`
	Count    int    `yaml:"count" json:"count"`
}

// Validate checks a request before any template is resolved or any value is
// generated. It inspects items in order and stops at the first invalid one,
// so a single bad item rejects the whole request.
//
// A nil slice is an absent request and is rejected. An empty, non-nil slice is
// a valid request for nothing.
func Validate(items []Item) error {
	if items == nil {
		return invalidArgument(-1, "", "the list of request items cannot be nil")
	}
	for i, item := range items {
		if strings.TrimSpace(item.Template) == "" {
			return invalidArgument(i, "",
				"the template name of request item %d cannot be null or empty", i)
		}
		if item.Count <= 0 {
			return invalidArgument(i, item.Template,
				"the count of request item %d cannot be 0 or negative, got %d", i, item.Count)
		}
	}
	return nil
}
