package audio

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rohitmangal/daily-news-podcast/internal/model"
	"github.com/rohitmangal/daily-news-podcast/internal/objectstore"
)

type fakeSynth struct {
	bytesPerUnit []byte
	err          error
}

func (f *fakeSynth) Synthesize(ctx context.Context, unit model.SynthesisUnit) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.bytesPerUnit, nil
}

// byIDSynth returns a distinct one-byte payload per unit ID, so callers can
// assert units are concatenated in plan order even when synthesized across
// multiple concurrent batches.
type byIDSynth struct{}

func (byIDSynth) Synthesize(ctx context.Context, unit model.SynthesisUnit) ([]byte, error) {
	return []byte(unit.ID), nil
}

func TestAssemble_ConcatenatesUnitsAndEstimatesDuration(t *testing.T) {
	store := objectstore.NewMemoryStore()
	plan := model.SynthesisPlan{Units: []model.SynthesisUnit{{ID: "u1"}, {ID: "u2"}}}
	synth := &fakeSynth{bytesPerUnit: make([]byte, 16*1024)} // 1 second worth per unit

	out, err := Assemble(context.Background(), synth, store, plan, "", "", false)

	require.NoError(t, err)
	assert.Len(t, out.MP3, 32*1024)
	assert.InDelta(t, 2.0, out.DurationSec, 0.01)
}

func TestAssemble_PreservesUnitOrderAcrossConcurrentBatches(t *testing.T) {
	store := objectstore.NewMemoryStore()
	plan := model.SynthesisPlan{Units: []model.SynthesisUnit{
		{ID: "a"}, {ID: "b"}, {ID: "c"}, {ID: "d"}, {ID: "e"},
	}}

	out, err := Assemble(context.Background(), byIDSynth{}, store, plan, "", "", false)

	require.NoError(t, err)
	assert.Equal(t, []byte("abcde"), out.MP3)
}

func TestAssemble_EmptyPlanErrors(t *testing.T) {
	store := objectstore.NewMemoryStore()
	_, err := Assemble(context.Background(), &fakeSynth{}, store, model.SynthesisPlan{}, "", "", false)
	require.Error(t, err)
}

func TestEmptyAudioError(t *testing.T) {
	err := EmptyAudioError{UnitID: "u1"}
	assert.Contains(t, err.Error(), "u1")
}
