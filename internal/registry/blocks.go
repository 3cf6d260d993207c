package registry

import "github.com/blockcanvas/indy/internal/schema"

func str(desc string) *schema.Schema {
	return &schema.Schema{Type: schema.TypeString, Description: desc}
}

func num(desc string) *schema.Schema {
	return &schema.Schema{Type: schema.TypeNumber, Description: desc}
}

func flag(desc string) *schema.Schema {
	return &schema.Schema{Type: schema.TypeBoolean, Description: desc}
}

func choice(desc string, def any, values ...any) *schema.Schema {
	return &schema.Schema{Type: schema.TypeString, Description: desc, Enum: values, Default: def}
}

func obj(title, desc string, props ...schema.Prop) *schema.Schema {
	s := schema.Object(props...)
	s.Title = title
	s.Description = desc
	return s
}

func list(desc string, items *schema.Schema) *schema.Schema {
	return &schema.Schema{Type: schema.TypeArray, Description: desc, Items: items}
}

func root(id, title, desc string, props ...schema.Prop) *schema.Schema {
	s := obj(title, desc, props...)
	s.ID = id
	return s
}

func backgroundSchema() *schema.Schema {
	return obj("Background", "Section background",
		schema.P("type", choice("Background fill", "solid", "solid", "gradient", "image")),
		schema.P("color", str("Design token color for solid fills")),
		schema.P("gradientFrom", str("Gradient start color token")),
		schema.P("gradientTo", str("Gradient end color token")),
		schema.P("gradientDirection", str("Gradient direction token")),
		schema.P("image", str("Image URL for image fills")),
		schema.P("overlay", flag("Darken the background for legibility")),
	)
}

func styleSchema() *schema.Schema {
	return obj("Style", "Spacing and alignment",
		schema.P("paddingY", str("Vertical spacing token")),
		schema.P("paddingX", str("Horizontal spacing token")),
		schema.P("textAlign", choice("Text alignment", "left", "left", "center", "right")),
		schema.P("maxWidth", choice("Content width", "xl", "md", "lg", "xl", "2xl", "full")),
	)
}

func buttonSchema() *schema.Schema {
	return obj("", "",
		schema.P("label", str("Button text")),
		schema.P("href", str("Link target")),
		schema.P("variant", choice("Visual variant", "primary", "primary", "secondary", "outline", "ghost", "link")),
	)
}

func defaultBackground() map[string]any {
	return map[string]any{"type": "solid", "color": "white"}
}

func defaultStyle(align string) map[string]any {
	return map[string]any{"paddingY": "xl", "paddingX": "md", "textAlign": align, "maxWidth": "xl"}
}

func builtinBlocks() []*BlockDescriptor {
	return []*BlockDescriptor{
		heroBlock(),
		gridBlock(),
		featuresBlock(),
		ctaBlock(),
		testimonialsBlock(),
		footerBlock(),
	}
}

func heroBlock() *BlockDescriptor {
	s := root("hero", "Hero", "Full-width banner that opens a page",
		schema.P("elements", obj("Elements", "Content shown in the hero",
			schema.P("eyebrow", str("Short label above the headline")),
			schema.P("title", obj("", "Main headline",
				schema.P("content", str("Headline text")),
				schema.P("level", choice("Heading level", "h1", "h1", "h2")),
			)),
			schema.P("subtitle", obj("", "Supporting text",
				schema.P("content", str("Subtitle text")),
			)),
			schema.P("buttons", list("Call to action buttons", buttonSchema())),
			schema.P("image", obj("", "Optional side image",
				schema.P("src", str("Image URL")),
				schema.P("alt", str("Alternative text")),
			)),
		)),
		schema.P("layout", obj("Layout", "Arrangement of hero content",
			schema.P("variant", choice("Content arrangement", "centered", "centered", "split", "image-left", "image-right")),
			schema.P("minHeight", choice("Minimum height", "lg", "sm", "md", "lg", "screen")),
		)),
		schema.P("background", backgroundSchema()),
		schema.P("style", styleSchema()),
	)
	s.LayoutGuidance = &schema.LayoutGuidance{
		Structure:  &schema.StructureGuidance{Recommended: []string{"eyebrow, title, subtitle, buttons", "split with image for product pages"}},
		Typography: &schema.TypographyGuidance{Hierarchy: map[string]string{"title": "text-5xl bold", "subtitle": "text-xl muted"}},
	}
	s.ContentHints = map[string]*schema.ContentHint{
		"title":    {LengthGuideline: "4-10 words", Characteristics: []string{"benefit-led", "specific"}},
		"subtitle": {LengthGuideline: "1-2 sentences", Characteristics: []string{"explains the headline"}},
	}

	return &BlockDescriptor{
		Kind:        KindHero,
		Name:        "Hero",
		Description: "Large introductory section with headline, subtitle and calls to action",
		Component:   "HeroBlock",
		Schema:      s,
		DefaultData: map[string]any{
			"elements": map[string]any{
				"eyebrow":  "",
				"title":    map[string]any{"content": "Build something people love", "level": "h1"},
				"subtitle": map[string]any{"content": "Describe what makes your product worth a visit."},
				"buttons": []any{
					map[string]any{"label": "Get started", "href": "#", "variant": "primary"},
				},
			},
			"layout":     map[string]any{"variant": "centered", "minHeight": "lg"},
			"background": defaultBackground(),
			"style":      defaultStyle("center"),
		},
		AIHints: map[string]any{
			"purpose":   "First impression; state the core value proposition",
			"avoid":     []any{"more than two buttons", "paragraph-length headlines"},
			"pairsWith": []any{"features", "cta"},
		},
	}
}

func gridBlock() *BlockDescriptor {
	s := root("grid", "Grid", "Responsive grid of cards",
		schema.P("elements", obj("Elements", "Heading and cards",
			schema.P("heading", str("Section heading")),
			schema.P("items", list("Cards in the grid", obj("", "",
				schema.P("title", str("Card title")),
				schema.P("body", str("Card text")),
				schema.P("image", str("Card image URL")),
				schema.P("href", str("Card link")),
			))),
		)),
		schema.P("layout", obj("Layout", "Grid settings",
			schema.P("columns", &schema.Schema{Type: schema.TypeNumber, Description: "Columns on desktop", Enum: []any{1, 2, 3, 4}, Default: 3}),
			schema.P("gap", str("Spacing token between cards")),
		)),
		schema.P("background", backgroundSchema()),
		schema.P("style", styleSchema()),
	)
	s.LayoutGuidance = &schema.LayoutGuidance{
		Structure: &schema.StructureGuidance{Recommended: []string{"3 columns for 3, 6 or 9 items", "2 columns for long card text"}},
	}

	return &BlockDescriptor{
		Kind:        KindGrid,
		Name:        "Grid",
		Description: "Cards laid out in a responsive grid",
		Component:   "GridBlock",
		Schema:      s,
		DefaultData: map[string]any{
			"elements": map[string]any{
				"heading": "Explore",
				"items": []any{
					map[string]any{"title": "First card", "body": "Short description."},
					map[string]any{"title": "Second card", "body": "Short description."},
					map[string]any{"title": "Third card", "body": "Short description."},
				},
			},
			"layout":     map[string]any{"columns": 3, "gap": "md"},
			"background": defaultBackground(),
			"style":      defaultStyle("left"),
		},
		AIHints: map[string]any{
			"purpose": "Browse a collection of related items",
			"avoid":   []any{"uneven card text length"},
		},
	}
}

func featuresBlock() *BlockDescriptor {
	s := root("features", "Features", "List of product features with icons",
		schema.P("content", obj("Content", "Section copy",
			schema.P("heading", str("Section heading")),
			schema.P("intro", str("Short introduction")),
		)),
		schema.P("elements", obj("Elements", "Feature entries",
			schema.P("features", list("Features", obj("", "",
				schema.P("icon", str("Icon name")),
				schema.P("title", str("Feature name")),
				schema.P("description", str("One sentence benefit")),
			))),
		)),
		schema.P("layout", obj("Layout", "Arrangement",
			schema.P("variant", choice("Arrangement", "grid", "grid", "list", "alternating")),
		)),
		schema.P("background", backgroundSchema()),
		schema.P("style", styleSchema()),
	)
	s.ContentHints = map[string]*schema.ContentHint{
		"features": {LengthGuideline: "3-6 entries", Characteristics: []string{"parallel phrasing", "benefit over feature"}},
	}

	return &BlockDescriptor{
		Kind:        KindFeatures,
		Name:        "Features",
		Description: "Highlights product capabilities",
		Component:   "FeaturesBlock",
		Schema:      s,
		DefaultData: map[string]any{
			"content": map[string]any{"heading": "Why teams choose us", "intro": ""},
			"elements": map[string]any{
				"features": []any{
					map[string]any{"icon": "zap", "title": "Fast", "description": "Pages load in an instant."},
					map[string]any{"icon": "shield", "title": "Secure", "description": "Your data stays yours."},
					map[string]any{"icon": "smile", "title": "Simple", "description": "No training required."},
				},
			},
			"layout":     map[string]any{"variant": "grid"},
			"background": defaultBackground(),
			"style":      defaultStyle("center"),
		},
		AIHints: map[string]any{
			"purpose":   "Explain why the product is worth it",
			"pairsWith": []any{"hero", "testimonials"},
		},
	}
}

func ctaBlock() *BlockDescriptor {
	s := root("cta", "Call to action", "Focused conversion section",
		schema.P("content", obj("Content", "Copy",
			schema.P("heading", str("Action-oriented heading")),
			schema.P("body", str("Supporting sentence")),
		)),
		schema.P("elements", obj("Elements", "Actions",
			schema.P("buttons", list("Buttons", buttonSchema())),
		)),
		schema.P("background", backgroundSchema()),
		schema.P("style", styleSchema()),
	)
	s.ContentHints = map[string]*schema.ContentHint{
		"heading": {LengthGuideline: "3-7 words", Characteristics: []string{"imperative"}},
	}

	return &BlockDescriptor{
		Kind:        KindCTA,
		Name:        "Call to action",
		Description: "Prompts the visitor to take one action",
		Component:   "CtaBlock",
		Schema:      s,
		DefaultData: map[string]any{
			"content": map[string]any{"heading": "Ready to start?", "body": "Create your first page in minutes."},
			"elements": map[string]any{
				"buttons": []any{map[string]any{"label": "Start now", "href": "#", "variant": "primary"}},
			},
			"background": map[string]any{"type": "gradient", "gradientFrom": "primary", "gradientTo": "accent", "gradientDirection": "to-r"},
			"style":      defaultStyle("center"),
		},
		AIHints: map[string]any{
			"purpose": "Convert; one primary action",
			"avoid":   []any{"more than one primary button"},
		},
	}
}

func testimonialsBlock() *BlockDescriptor {
	s := root("testimonials", "Testimonials", "Customer quotes",
		schema.P("content", obj("Content", "Copy",
			schema.P("heading", str("Section heading")),
		)),
		schema.P("elements", obj("Elements", "Quotes",
			schema.P("quotes", list("Quotes", obj("", "",
				schema.P("quote", str("Quote text")),
				schema.P("author", str("Person quoted")),
				schema.P("role", str("Role and company")),
				schema.P("avatar", str("Avatar image URL")),
			))),
		)),
		schema.P("layout", obj("Layout", "Arrangement",
			schema.P("variant", choice("Arrangement", "cards", "cards", "carousel", "single")),
		)),
		schema.P("background", backgroundSchema()),
		schema.P("style", styleSchema()),
	)

	return &BlockDescriptor{
		Kind:        KindTestimonials,
		Name:        "Testimonials",
		Description: "Social proof from customers",
		Component:   "TestimonialsBlock",
		Schema:      s,
		DefaultData: map[string]any{
			"content": map[string]any{"heading": "Loved by our customers"},
			"elements": map[string]any{
				"quotes": []any{
					map[string]any{"quote": "It changed how we work.", "author": "Alex Doe", "role": "Founder, Acme"},
				},
			},
			"layout":     map[string]any{"variant": "cards"},
			"background": defaultBackground(),
			"style":      defaultStyle("center"),
		},
		AIHints: map[string]any{
			"purpose": "Build trust with real voices",
			"avoid":   []any{"invented statistics"},
		},
	}
}

func footerBlock() *BlockDescriptor {
	s := root("footer", "Footer", "Page footer with links",
		schema.P("content", obj("Content", "Footer copy",
			schema.P("copyright", str("Copyright line")),
			schema.P("tagline", str("Short tagline")),
		)),
		schema.P("elements", obj("Elements", "Link columns",
			schema.P("columns", list("Link columns", obj("", "",
				schema.P("title", str("Column title")),
				schema.P("links", list("Links", obj("", "",
					schema.P("label", str("Link text")),
					schema.P("href", str("Link target")),
				))),
			))),
		)),
		schema.P("background", backgroundSchema()),
		schema.P("style", styleSchema()),
	)

	return &BlockDescriptor{
		Kind:        KindFooter,
		Name:        "Footer",
		Description: "Closing section with navigation and legal text",
		Component:   "FooterBlock",
		Schema:      s,
		DefaultData: map[string]any{
			"content":    map[string]any{"copyright": "© Your Company", "tagline": ""},
			"elements":   map[string]any{"columns": []any{}},
			"background": map[string]any{"type": "solid", "color": "gray-900"},
			"style":      defaultStyle("left"),
		},
		AIHints: map[string]any{
			"purpose": "Navigation and legal information",
		},
	}
}
