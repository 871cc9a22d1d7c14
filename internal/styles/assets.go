package styles

import (
	"embed"
	"fmt"

	pcerrors "github.com/conneroisu/pagecraft/internal/errors"
)

//go:embed assets/*.css
var baseSheets embed.FS

// Assets holds the base stylesheets every generated page starts from.
type Assets struct {
	Reset      string
	Utilities  string
	Responsive string
}

// LoadAssets reads the embedded base stylesheets.
func LoadAssets() (Assets, error) {
	var a Assets
	for name, dst := range map[string]*string{
		"assets/reset.css":      &a.Reset,
		"assets/utilities.css":  &a.Utilities,
		"assets/responsive.css": &a.Responsive,
	} {
		data, err := baseSheets.ReadFile(name)
		if err != nil {
			return Assets{}, pcerrors.NewIOError(pcerrors.ErrCodeMissingAsset,
				fmt.Sprintf("base stylesheet %s not found", name), err)
		}
		*dst = string(data)
	}
	return a, nil
}

func (a Assets) check() error {
	switch {
	case a.Reset == "":
		return missingSheet("reset")
	case a.Utilities == "":
		return missingSheet("utilities")
	case a.Responsive == "":
		return missingSheet("responsive")
	}
	return nil
}

func missingSheet(name string) error {
	return pcerrors.NewInternalError(pcerrors.ErrCodeMissingAsset,
		fmt.Sprintf("%s stylesheet is empty", name), nil)
}
