package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carrierwatcher/carrierwatcher/model"
)

func TestInput_Validate(t *testing.T) {
	tests := []struct {
		name    string
		in      Input
		wantErr string
	}{
		{name: "valid", in: Input{Code: "C1", Company: "Acme", ApplicationDate: "2024-01-02"}},
		{name: "missing company", in: Input{Code: "C1", Company: "   "}, wantErr: "company is required"},
		{name: "missing code", in: Input{Company: "Acme"}, wantErr: "code is required"},
		{name: "company reported first", in: Input{}, wantErr: "company is required"},
		{name: "unknown status", in: Input{Code: "C1", Company: "Acme", Status: "Ghosted"}, wantErr: "status has invalid value"},
		{name: "bad date", in: Input{Code: "C1", Company: "Acme", StartDate: "02/01/2024"}, wantErr: "start_date has invalid value"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.in.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, model.ErrValidation)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestAdd(t *testing.T) {
	table := model.Table{{Company: "Globex"}}

	got, err := Add(table, Input{Code: " C1 ", Company: " Acme ", Domain: "Finance"})
	require.NoError(t, err)

	require.Len(t, got, 2)
	assert.Len(t, table, 1)
	assert.Equal(t, model.Application{Code: "C1", Company: "Acme", Domain: "Finance", Status: model.StatusPending}, got[1])

	_, err = Add(table, Input{Code: "C2"})
	assert.ErrorIs(t, err, model.ErrValidation)
}

func TestUpdate_KeepsSyncColumns(t *testing.T) {
	table := model.Table{{Company: "Acme", Status: model.StatusPending, LastEmail: "2024-01-01T00:00:00Z", Source: model.SourceEmail}}

	got, err := Update(table, 0, Input{Code: "C1", Company: "Acme", Status: model.StatusAccepted, StartDate: "2024-06-01"})
	require.NoError(t, err)

	assert.Equal(t, model.Application{
		Code:      "C1",
		Company:   "Acme",
		Status:    model.StatusAccepted,
		StartDate: "2024-06-01",
		LastEmail: "2024-01-01T00:00:00Z",
		Source:    model.SourceEmail,
	}, got[0])
	assert.Equal(t, model.StatusPending, table[0].Status)
}

func TestUpdateDelete_IndexOutOfRange(t *testing.T) {
	table := model.Table{{Company: "Acme"}}

	_, err := Update(table, 1, Input{Code: "C", Company: "X"})
	assert.ErrorIs(t, err, model.ErrValidation)

	_, err = Delete(table, -1)
	assert.ErrorIs(t, err, model.ErrValidation)
}

func TestDelete(t *testing.T) {
	table := model.Table{{Company: "A"}, {Company: "B"}, {Company: "C"}}

	got, err := Delete(table, 1)
	require.NoError(t, err)

	assert.Equal(t, model.Table{{Company: "A"}, {Company: "C"}}, got)
	assert.Len(t, table, 3)
}
