package factcheck

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rohitmangal/daily-news-podcast/internal/llm"
	"github.com/rohitmangal/daily-news-podcast/internal/model"
)

type fakeProvider struct{ resp string }

func (f fakeProvider) Chat(ctx context.Context, req llm.Request) (string, error) {
	return f.resp, nil
}

func baseScript() model.Script {
	return model.Script{Sections: []model.ScriptSection{
		{Kind: model.SectionIntro, Text: "Welcome."},
		{Kind: model.SectionSegment, Text: "The Fed raised rates."},
		{Kind: model.SectionOutro, Text: "Goodbye."},
	}}
}

func TestRunFactCheck_RevisesOnlyEditableSections(t *testing.T) {
	resp := `{"sections":[{"revised_text":"The Fed raised rates by 25bps.","edits":["corrected amount"],"risk_level":"low"}]}`
	out, err := RunFactCheck(context.Background(), fakeProvider{resp: resp}, "gpt-4o-mini", baseScript())

	require.NoError(t, err)
	assert.Equal(t, "Welcome.", out.Script.Sections[0].Text)
	assert.Equal(t, "The Fed raised rates by 25bps.", out.Script.Sections[1].Text)
	assert.Equal(t, "Goodbye.", out.Script.Sections[2].Text)
	assert.Equal(t, []string{"corrected amount"}, out.Edits)
}

func TestRunSafety_AggregatesMaxRisk(t *testing.T) {
	resp := `{"sections":[{"revised_text":null,"risk_level":"high"}]}`
	out, err := RunSafety(context.Background(), fakeProvider{resp: resp}, "gpt-4o-mini", baseScript())

	require.NoError(t, err)
	assert.Equal(t, RiskHigh, out.RiskLevel)
	assert.Equal(t, "The Fed raised rates.", out.Script.Sections[1].Text)
}

func TestMaxRisk(t *testing.T) {
	assert.Equal(t, RiskHigh, MaxRisk(RiskLow, RiskHigh))
	assert.Equal(t, RiskMedium, MaxRisk(RiskMedium, RiskLow))
}
