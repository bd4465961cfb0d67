package placeholder

// Class identifies which Markdown construct a protected span came from.
type Class int

const (
	FencedCode Class = iota
	InlineCode
	LinkDestination
	LinkReference
	LinkDefinition
	HTML
	Autolink
	FrontMatter
)

var classNames = [...]string{
	FencedCode:      "fenced-code",
	InlineCode:      "inline-code",
	LinkDestination: "link-destination",
	LinkReference:   "link-reference",
	LinkDefinition:  "link-definition",
	HTML:            "html",
	Autolink:        "autolink",
	FrontMatter:     "front-matter",
}

func (c Class) String() string {
	if c < 0 || int(c) >= len(classNames) {
		return "unknown"
	}
	return classNames[c]
}

// Span is a substring of the source that must survive translation verbatim.
type Span struct {
	Class Class
	// Text is the original content, delimiters included.
	Text string
	// Offset is the byte offset of Text in the source document.
	Offset int
}
