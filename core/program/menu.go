package program

import (
	"io/fs"
	"sync"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	appfs "github.com/trezcool/beasiswa/fs"
)

const menuPath = "assets/menu.yaml"

var (
	menuItems []MenuItem
	menuErr   error
	menuOnce  sync.Once
)

// MenuItem is a static entry of the student dashboard.
type MenuItem struct {
	Slug        string `json:"slug" yaml:"slug"`
	Title       string `json:"title" yaml:"title"`
	Icon        string `json:"icon" yaml:"icon"`
	Description string `json:"description" yaml:"description"`
}

// Menu returns the embedded menu items; they are only parsed once.
func Menu() ([]MenuItem, error) {
	menuOnce.Do(func() {
		menuItems, menuErr = parseMenu(appfs.FS)
	})
	return menuItems, menuErr
}

func parseMenu(fsys fs.FS) ([]MenuItem, error) {
	data, err := fs.ReadFile(fsys, menuPath)
	if err != nil {
		return nil, errors.Wrap(err, "reading menu")
	}
	var items []MenuItem
	if err = yaml.Unmarshal(data, &items); err != nil {
		return nil, errors.Wrap(err, "decoding menu")
	}
	return items, nil
}

func findMenuItem(items []MenuItem, slug string) (MenuItem, bool) {
	for _, it := range items {
		if it.Slug == slug {
			return it, true
		}
	}
	return MenuItem{}, false
}
