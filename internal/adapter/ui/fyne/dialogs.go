package fyne

import (
	"errors"
	"strings"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"

	"github.com/tejashwikalptaru/archiveplayer/res"
)

// ItemDialog asks for the identifier of a catalog item to open.
type ItemDialog struct {
	window   fyne.Window
	current  string
	callback func(string)
}

// NewItemDialog creates a new item dialog prefilled with current.
func NewItemDialog(window fyne.Window, current string, callback func(string)) *ItemDialog {
	return &ItemDialog{
		window:   window,
		current:  current,
		callback: callback,
	}
}

// Show displays the item dialog.
func (d *ItemDialog) Show() {
	entry := widget.NewEntry()
	entry.SetText(d.current)
	entry.SetPlaceHolder("e.g. 74465213")
	entry.Validator = validateItemID

	items := []*widget.FormItem{widget.NewFormItem("Item ID", entry)}
	dialog.ShowForm("Open Item", "Open", "Cancel", items, func(ok bool) {
		if !ok {
			return // User cancelled
		}
		if d.callback != nil {
			d.callback(strings.TrimSpace(entry.Text))
		}
	}, d.window)
}

// validateItemID accepts identifiers that can form a single URL path segment.
func validateItemID(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return errors.New("item id is required")
	}
	if strings.ContainsAny(s, "/?# ") {
		return errors.New("item id must be a single path segment")
	}
	return nil
}

func showErrorDialog(window fyne.Window, title string, err error) {
	dialog.ShowInformation(title, err.Error(), window)
}

func showAboutDialog(window fyne.Window, appName, version string) {
	body := widget.NewRichTextFromMarkdown(res.AboutContent)
	body.Wrapping = fyne.TextWrapWord
	d := dialog.NewCustom(appName+" "+version, "Close", body, window)
	d.Resize(fyne.NewSize(420, 300))
	d.Show()
}
