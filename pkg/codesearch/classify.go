package codesearch

import "strings"

type pathRule struct {
	marker string
	suffix string
	kind   string
}

// Path markers win over extensions; order matters.
var pathRules = []pathRule{
	{"/fields/", ".field-meta.xml", "Custom Field"},
	{"/objects/", ".object-meta.xml", "Custom Object"},
	{"/triggers/", "", "Apex Trigger"},
	{"/classes/", "", "Apex Class"},
	{"/pages/", "", "Visualforce Page"},
	{"/components/", "", "Visualforce Component"},
	{"/aura/", "", "Aura Component"},
	{"/lwc/", "", "LWC Component"},
	{"/flows/", "", "Flow"},
	{"/workflows/", "", "Workflow Rule"},
	{"/layouts/", "", "Page Layout"},
	{"/permissionsets/", "", "Permission Set"},
	{"/profiles/", "", "Profile"},
}

var extensionTypes = []struct {
	ext  string
	kind string
}{
	{".cls", "Apex Class"},
	{".trigger", "Apex Trigger"},
	{".component", "Visualforce Component"},
	{".page", "Visualforce Page"},
	{".object", "Custom Object"},
	{".field-meta.xml", "Custom Field"},
	{".workflow", "Workflow Rule"},
	{".flow", "Flow"},
	{".permissionset", "Permission Set"},
	{".profile", "Profile"},
	{".layout", "Page Layout"},
	{".app", "Lightning App"},
	{".cmp", "Aura Component"},
	{".js", "JavaScript"},
	{".html", "HTML"},
	{".css", "CSS"},
	{".xml", "XML"},
}

// Classify names the Salesforce metadata type of a file.
func Classify(name, path string) string {
	for _, r := range pathRules {
		if strings.Contains(path, r.marker) && strings.HasSuffix(name, r.suffix) {
			return r.kind
		}
	}
	for _, e := range extensionTypes {
		if strings.HasSuffix(name, e.ext) {
			return e.kind
		}
	}
	if i := strings.LastIndex(name, "."); i >= 0 {
		return strings.ToUpper(name[i+1:])
	}
	return "Unknown"
}

// BadgeClass maps a file type to its display badge.
func BadgeClass(fileType string) string {
	has := func(words ...string) bool {
		for _, w := range words {
			if strings.Contains(fileType, w) {
				return true
			}
		}
		return false
	}
	switch {
	case has("Apex", "Trigger"):
		return "badge-apex"
	case has("Field", "Object"):
		return "badge-field"
	case has("LWC", "Aura", "Component"):
		return "badge-component"
	case has("Flow", "Workflow"):
		return "badge-flow"
	default:
		return "badge-default"
	}
}
