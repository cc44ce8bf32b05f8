package dataset

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/botforgehq/botforge/internal/models"
)

func example(turns ...string) models.TrainingExample {
	var msgs []models.TrainingMessage
	for i, t := range turns {
		role := models.RoleUser
		if i%2 == 1 {
			role = models.RoleAssistant
		}
		msgs = append(msgs, models.TrainingMessage{Role: role, Content: t})
	}
	return models.TrainingExample{Messages: msgs}
}

func TestFingerprintIgnoresCaseAndWhitespace(t *testing.T) {
	a := example("What is your name?", "I am the helper bot.")
	b := example("  WHAT IS YOUR NAME?  ", "i am the helper bot.")

	assert.Equal(t, Fingerprint(a), Fingerprint(b))
}

func TestFingerprintIgnoresMessageOrder(t *testing.T) {
	a := models.TrainingExample{Messages: []models.TrainingMessage{
		{Role: models.RoleUser, Content: "hello"},
		{Role: models.RoleAssistant, Content: "hi there"},
	}}
	b := models.TrainingExample{Messages: []models.TrainingMessage{
		{Role: models.RoleAssistant, Content: "hi there"},
		{Role: models.RoleUser, Content: "hello"},
	}}

	assert.Equal(t, Fingerprint(a), Fingerprint(b))
}

func TestFingerprintDistinguishesContentAndRole(t *testing.T) {
	a := example("hello", "hi")
	b := example("hello", "hey")
	assert.NotEqual(t, Fingerprint(a), Fingerprint(b))

	// Same contents on swapped roles must not collide.
	c := models.TrainingExample{Messages: []models.TrainingMessage{
		{Role: models.RoleUser, Content: "hi"},
		{Role: models.RoleAssistant, Content: "hello"},
	}}
	assert.NotEqual(t, Fingerprint(a), Fingerprint(c))
}

func TestIndexAddHas(t *testing.T) {
	idx := NewIndex()
	fp := Fingerprint(example("q", "a"))

	assert.False(t, idx.Has(fp))
	idx.Add(fp)
	assert.True(t, idx.Has(fp))
	assert.Equal(t, 1, idx.Len())

	idx.Add(fp)
	assert.Equal(t, 1, idx.Len())
}

func TestLoadGlobalIndexSkipsMalformedLines(t *testing.T) {
	good, err := EncodeJSONL([]models.TrainingExample{example("q1", "a1"), example("q2", "a2")})
	require.NoError(t, err)
	mixed := good + "{not json}\n" + `{"messages":[]}` + "\n"

	ds := newFakeDatasetStore()
	empty := "" // content present but blank
	ds.add(&models.Dataset{ID: newUUID(t), Content: &mixed})
	ds.add(&models.Dataset{ID: newUUID(t), Content: &empty})
	ds.add(&models.Dataset{ID: newUUID(t)}) // never generated

	idx, err := LoadGlobalIndex(context.Background(), ds)
	require.NoError(t, err)
	assert.Equal(t, 2, idx.Len())
	assert.True(t, idx.Has(Fingerprint(example("q1", "a1"))))
	assert.True(t, idx.Has(Fingerprint(example("q2", "a2"))))
}
