package commands

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hay-kot/partyline/internal/commands/doctor"
	"github.com/hay-kot/partyline/internal/printer"
)

func sampleResults() []doctor.Result {
	r := doctor.Result{Name: "Table"}
	r.Addf(doctor.StatusPass, "Table file", "party.table")
	r.AddFixable(doctor.StatusFail, "Alignment", "3 trailing byte(s)")
	return []doctor.Result{r}
}

func TestWriteDoctorJSON(t *testing.T) {
	results := sampleResults()

	var out bytes.Buffer
	require.NoError(t, writeDoctorJSON(&out, results, doctor.Summarize(results)))

	var got struct {
		Healthy bool          `json:"healthy"`
		Summary doctor.Report `json:"summary"`
		Checks  []struct {
			Items []struct {
				Status  string `json:"status"`
				Fixable bool   `json:"fixable"`
			} `json:"items"`
		} `json:"checks"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))

	assert.False(t, got.Healthy)
	assert.Equal(t, doctor.Report{Passed: 1, Failed: 1, Fixable: 1}, got.Summary)
	require.Len(t, got.Checks, 1)
	assert.Equal(t, "fail", got.Checks[0].Items[1].Status)
	assert.True(t, got.Checks[0].Items[1].Fixable)
}

func TestWriteDoctorText(t *testing.T) {
	results := sampleResults()

	var out bytes.Buffer
	writeDoctorText(printer.New(&out), results, doctor.Summarize(results))

	text := out.String()
	assert.Contains(t, text, "Table file: party.table")
	assert.Contains(t, text, "Alignment: 3 trailing byte(s)")
	assert.Contains(t, text, "Summary: 1 passed, 0 warnings, 1 failed")
	assert.Contains(t, text, "doctor --fix")
}
