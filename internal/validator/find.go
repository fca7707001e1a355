package validator

import "github.com/beevik/etree"

// findElement walks the path segment by segment, resolving each segment
// to the first descendant (document order) whose local tag matches,
// regardless of namespace prefix
func findElement(el *etree.Element, path ...string) *etree.Element {
	current := el
	for _, name := range path {
		current = firstDescendant(current, name)
		if current == nil {
			return nil
		}
	}
	return current
}

// findElements returns every descendant with the given local tag
func findElements(el *etree.Element, name string) []*etree.Element {
	var matches []*etree.Element
	collectDescendants(el, name, &matches)
	return matches
}

// findText resolves a path and returns the element's text, or "" when
// the path does not exist
func findText(el *etree.Element, path ...string) string {
	found := findElement(el, path...)
	if found == nil {
		return ""
	}
	return found.Text()
}

func firstDescendant(el *etree.Element, name string) *etree.Element {
	for _, child := range el.ChildElements() {
		if child.Tag == name {
			return child
		}
		if found := firstDescendant(child, name); found != nil {
			return found
		}
	}
	return nil
}

func collectDescendants(el *etree.Element, name string, matches *[]*etree.Element) {
	for _, child := range el.ChildElements() {
		if child.Tag == name {
			*matches = append(*matches, child)
		}
		collectDescendants(child, name, matches)
	}
}
