package registry

import "github.com/blockcanvas/indy/internal/schema"

func builtinElements() []*ElementDescriptor {
	return []*ElementDescriptor{
		{
			Kind:        ElementButton,
			Name:        "Button",
			Description: "Clickable call to action",
			Component:   "Button",
			Schema:      buttonSchema(),
			DefaultProps: map[string]any{
				"label": "Click me", "href": "#", "variant": "primary",
			},
		},
		{
			Kind:        ElementText,
			Name:        "Text",
			Description: "Paragraph of body copy",
			Component:   "Text",
			Schema: schema.Object(
				schema.P("content", str("Text content")),
				schema.P("size", choice("Font size", "base", "sm", "base", "lg", "xl")),
				schema.P("muted", flag("Use the muted text color")),
			),
			DefaultProps: map[string]any{"content": "", "size": "base"},
		},
		{
			Kind:        ElementHeading,
			Name:        "Heading",
			Description: "Section or page heading",
			Component:   "Heading",
			Schema: schema.Object(
				schema.P("content", str("Heading text")),
				schema.P("level", choice("Semantic level", "h2", "h1", "h2", "h3", "h4")),
			),
			DefaultProps: map[string]any{"content": "Heading", "level": "h2"},
		},
		{
			Kind:        ElementImage,
			Name:        "Image",
			Description: "Responsive image",
			Component:   "Image",
			Schema: schema.Object(
				schema.P("src", str("Image URL")),
				schema.P("alt", str("Alternative text")),
				schema.P("rounded", flag("Round the corners")),
				schema.P("aspect", choice("Aspect ratio", "auto", "auto", "square", "video", "portrait")),
			),
			DefaultProps: map[string]any{"src": "", "alt": "", "aspect": "auto"},
		},
		{
			Kind:        ElementAvatar,
			Name:        "Avatar",
			Description: "Round portrait with fallback initials",
			Component:   "Avatar",
			Schema: schema.Object(
				schema.P("src", str("Portrait URL")),
				schema.P("name", str("Used for initials and alt text")),
				schema.P("size", num("Diameter in pixels")),
			),
			DefaultProps: map[string]any{"src": "", "name": "", "size": 40},
		},
		{
			Kind:        ElementBadge,
			Name:        "Badge",
			Description: "Small status or category label",
			Component:   "Badge",
			Schema: schema.Object(
				schema.P("label", str("Badge text")),
				schema.P("tone", choice("Color tone", "neutral", "neutral", "success", "warning", "danger", "info")),
			),
			DefaultProps: map[string]any{"label": "New", "tone": "neutral"},
		},
	}
}

// Summarise renders the element for a prompt.
func (d *ElementDescriptor) Summarise() string {
	return schema.SummariseElementForAI(d.Name, d.Description, d.Schema)
}
