package batch

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lernerlab/medconv/internal/models"
)

const fpLog = `Start Date: 04/18/19
Subject: 96.259
Box: 1
Start Time: 10:41:42
End Time: 11:41:02
MSN: FOOD_FR1 TTL Left
A:
     0:      175.150

Start Date: 04/19/19
Subject: 96.259
Box: 1
Start Time: 09:33:12
End Time: 10:33:44
MSN: FOOD_FR1 TTL Left
A:
     0:       12.300
`

const optoLog = `Start Date: 10/25/21
Subject: 266.477
Box: 2
Start Time: 10:44:00
End Time: 11:44:00
MSN: FR1_LEFT_STIM
A:
     0:       12.300
`

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestDiscoverFP(t *testing.T) {
	dataDir := t.TempDir()
	writeFile(t, filepath.Join(dataDir, "FP Experiments", "Behavior", "PS", "96.259", "96.259"), fpLog)

	targets, err := DiscoverFP(dataDir)
	require.NoError(t, err)
	require.Len(t, targets, 2)

	first := targets[0]
	assert.Equal(t, "FP", first.ExperimentType)
	assert.Equal(t, "PS", first.Cohort)
	assert.Equal(t, "96.259", first.Request.SubjectID)
	assert.Equal(t, "04/18/19", first.Request.Spec.Date)
	assert.Equal(t, "10:41:42", first.Request.Spec.StartTime)
	assert.Equal(t, "FOOD_FR1 TTL Left", first.Request.Spec.MSN)
	assert.Empty(t, first.Request.Group, "FP cohort sessions carry no optogenetic group")
	assert.Equal(t, "FP_PS_96.259_04-18-19_10-41-42", first.SessionID)
}

func TestDiscoverFPEmptyTree(t *testing.T) {
	targets, err := DiscoverFP(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, targets)
}

func TestDiscoverOptoTreatmentFolders(t *testing.T) {
	dataDir := t.TempDir()
	writeFile(t, filepath.Join(dataDir, "Opto Experiments", "DLS Excitatory", "ChR2", "266.477"), optoLog)

	targets, err := DiscoverOpto(dataDir)
	require.NoError(t, err)
	require.Len(t, targets, 1)

	got := targets[0]
	assert.Equal(t, "Opto", got.ExperimentType)
	assert.Equal(t, models.GroupDLSExcitatory, got.Request.Group)
	assert.Equal(t, models.TreatmentChR2, got.Request.Treatment)
	assert.Equal(t, "266.477", got.Request.SubjectID)
}

// Scrambled folders hold the scrambled control of whichever opsin the
// group uses.
func TestDiscoverOptoScrambledTreatment(t *testing.T) {
	dataDir := t.TempDir()
	writeFile(t, filepath.Join(dataDir, "Opto Experiments", "DMS Inhibitory", "Group 1", "Scrambled", "266.477"), optoLog)
	writeFile(t, filepath.Join(dataDir, "Opto Experiments", "DMS Excitatory", "Scrambled", "263.477"), optoLog)

	targets, err := DiscoverOpto(dataDir)
	require.NoError(t, err)
	require.Len(t, targets, 2)

	byGroup := map[models.ExperimentalGroup]models.OptogeneticTreatment{}
	for _, target := range targets {
		byGroup[target.Request.Group] = target.Request.Treatment
	}
	assert.Equal(t, models.TreatmentNpHRScrambled, byGroup[models.GroupDMSInhibitory])
	assert.Equal(t, models.TreatmentChR2Scrambled, byGroup[models.GroupDMSExcitatory])
}

// Files directly under a group directory are the raw files-by-date
// archive: sessions are identified by their own recorded subject field.
func TestDiscoverOptoByDateArchive(t *testing.T) {
	dataDir := t.TempDir()
	writeFile(t, filepath.Join(dataDir, "Opto Experiments", "DLS Excitatory", "2021-10-25"), optoLog)

	targets, err := DiscoverOpto(dataDir)
	require.NoError(t, err)
	require.Len(t, targets, 1)
	assert.Equal(t, models.TreatmentUnknown, targets[0].Request.Treatment)
	assert.Equal(t, "266.477", targets[0].Request.SubjectID)
	assert.Equal(t, "2", targets[0].Request.Spec.Box, "by-date sessions constrain the box")
}

func TestDiscoverOptoIgnoresCSV(t *testing.T) {
	dataDir := t.TempDir()
	writeFile(t, filepath.Join(dataDir, "Opto Experiments", "DLS Excitatory", "ChR2", "weights.csv"), "a,b\n")

	targets, err := DiscoverOpto(dataDir)
	require.NoError(t, err)
	assert.Empty(t, targets)
}

func TestOptoSubjectID(t *testing.T) {
	tests := []struct {
		name    string
		want    string
		wantErr bool
	}{
		{name: "266.477", want: "266.477"},
		{name: "2021-10-25_10h44m_Subject 266.477.txt", want: "266.477"},
		{name: "20211025_244.465", want: "244.465"},
		{name: "2021-10-29__340.483", want: "340.483"},
		{name: "262_478", want: "262.478"},
		{name: "2021-10-29_262_478 - Copy", want: "262.478"},
		{name: "266", want: "266.477"}, // truncated subject field, resolved via the partial-id table
		{name: "notes", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := optoSubjectID(tt.name)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDedupe(t *testing.T) {
	dataDir := t.TempDir()
	// The same physical subject file reachable twice produces one
	// target per session, not two.
	path := filepath.Join(dataDir, "FP Experiments", "Behavior", "PS", "96.259", "96.259")
	writeFile(t, path, optoLog)

	targets, err := DiscoverFP(dataDir)
	require.NoError(t, err)
	deduped := dedupe(append(targets, targets...))
	assert.Len(t, deduped, len(targets))
}
