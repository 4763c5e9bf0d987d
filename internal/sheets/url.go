package sheets

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

const (
	editFragment   = "/edit#gid="
	exportFragment = "/export?format=csv&gid="
	exportBase     = "https://docs.google.com/spreadsheets/d/%s/export?format=csv"
)

var spreadsheetIDPattern = regexp.MustCompile(`/spreadsheets/d/([a-zA-Z0-9_-]+)`)

// SpreadsheetID extracts the document ID from a spreadsheet URL.
func SpreadsheetID(sheetURL string) (string, error) {
	m := spreadsheetIDPattern.FindStringSubmatch(sheetURL)
	if m == nil {
		return "", fmt.Errorf("no spreadsheet id in %q", sheetURL)
	}
	return m[1], nil
}

// ExportURL derives the CSV export URL for the worksheet an edit URL points at.
func ExportURL(sheetURL string) (string, error) {
	sheetURL = strings.TrimSpace(sheetURL)
	if sheetURL == "" {
		return "", fmt.Errorf("spreadsheet url is required")
	}
	if strings.Contains(sheetURL, editFragment) {
		return strings.Replace(sheetURL, editFragment, exportFragment, 1), nil
	}
	if strings.Contains(sheetURL, "/export?") {
		return sheetURL, nil
	}
	id, err := SpreadsheetID(sheetURL)
	if err != nil {
		return "", err
	}
	out := fmt.Sprintf(exportBase, id)
	if gid := worksheetGID(sheetURL); gid != "" {
		out += "&gid=" + url.QueryEscape(gid)
	}
	return out, nil
}

func worksheetGID(sheetURL string) string {
	u, err := url.Parse(sheetURL)
	if err != nil {
		return ""
	}
	if gid := u.Query().Get("gid"); gid != "" {
		return gid
	}
	if frag, err := url.ParseQuery(u.Fragment); err == nil {
		return frag.Get("gid")
	}
	return ""
}
