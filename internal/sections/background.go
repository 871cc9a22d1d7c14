package sections

import (
	"strings"

	"github.com/a-h/templ"
	"github.com/conneroisu/pagecraft/internal/page"
)

type background struct {
	style   string
	overlay bool
}

// resolveBackground maps a backdrop to inline style declarations. Gradients
// are substituted as given; images get cover sizing and a legibility overlay.
func resolveBackground(bg page.Background) background {
	switch bg.Type {
	case page.BackgroundGradient:
		if bg.Gradient == "" {
			return background{}
		}
		return background{style: "background:" + bg.Gradient + ";"}
	case page.BackgroundImage:
		if bg.Image == "" {
			return background{style: colorDecl("background-color", bg.Color)}
		}
		return background{
			style: "background-image:url('" + templ.EscapeString(cssURL(bg.Image)) + "');" +
				"background-size:cover;background-position:center;",
			overlay: true,
		}
	default:
		return background{style: colorDecl("background-color", bg.Color)}
	}
}

var cssURLEscaper = strings.NewReplacer(
	"'", "%27",
	`"`, "%22",
	"(", "%28",
	")", "%29",
	`\`, "%5C",
	" ", "%20",
	"\n", "",
	"\r", "",
	"\t", "",
)

// cssURL sanitizes an image URL and percent-encodes the characters that
// could terminate a quoted CSS url() token.
func cssURL(raw string) string {
	return cssURLEscaper.Replace(safeURL(raw))
}
