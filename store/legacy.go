package store

import (
	"strings"

	"github.com/carrierwatcher/carrierwatcher/model"
)

// Spreadsheets created by the first French-language release use these
// headers and status labels. They are mapped on load and written back in
// canonical form.
var legacyColumns = map[string]string{
	"Code candidature":   model.ColumnCode,
	"Entreprise":         model.ColumnCompany,
	"Thématique":         model.ColumnTheme,
	"Domaine":            model.ColumnDomain,
	"Statut":             model.ColumnStatus,
	"Date d'application": model.ColumnApplicationDate,
	"Début de stage":     model.ColumnStartDate,
	"Dernier mail":       model.ColumnLastEmail,
}

var legacyStatuses = map[string]model.Status{
	"En attente": model.StatusPending,
	"Entretien":  model.StatusInterview,
	"Acceptée":   model.StatusAccepted,
	"Refusée":    model.StatusRejected,
}

func canonicalColumn(name string) (string, bool) {
	name = strings.TrimSpace(name)
	for _, c := range model.Columns {
		if c == name {
			return c, true
		}
	}
	c, ok := legacyColumns[name]
	return c, ok
}

func legacyStatus(value string) string {
	if s, ok := legacyStatuses[value]; ok {
		return string(s)
	}
	return value
}
