package seed

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/John-Robertt/moviegraph/internal/infra/logx"
)

type call struct {
	cypher string
	rows   []map[string]any
}

type fakeRunner struct {
	calls  []call
	failAt int
}

func (f *fakeRunner) Run(_ context.Context, cypher string, params map[string]any) (Counters, error) {
	f.calls = append(f.calls, call{cypher: cypher, rows: params["rows"].([]map[string]any)})
	if f.failAt > 0 && len(f.calls) == f.failAt {
		return Counters{}, errors.New("bolt unavailable")
	}
	n := len(params["rows"].([]map[string]any))
	if strings.Contains(cypher, "]->(m)") {
		return Counters{RelationshipsCreated: n}, nil
	}
	return Counters{NodesCreated: n, PropertiesSet: 2 * n}, nil
}

func TestDefault_IsValid(t *testing.T) {
	ds := Default()
	require.NotEmpty(t, ds.Movies)
	require.NotEmpty(t, ds.People)
	require.NotEmpty(t, ds.ActedIn)
	require.NotEmpty(t, ds.Directed)
	require.NoError(t, ds.Validate())
}

func TestSeed_MergesInOrder(t *testing.T) {
	ds := Default()
	r := &fakeRunner{}

	got, err := Seed(context.Background(), r, ds)
	require.NoError(t, err)
	require.Len(t, r.calls, 4)

	for i, kw := range []string{"MERGE (m:Movie", "MERGE (p:Person", "ACTED_IN", "DIRECTED"} {
		require.Contains(t, r.calls[i].cypher, kw)
		require.Contains(t, r.calls[i].cypher, "UNWIND $rows")
	}
	require.Equal(t, len(ds.Movies)+len(ds.People), got.NodesCreated)
	require.Equal(t, len(ds.ActedIn)+len(ds.Directed), got.RelationshipsCreated)

	neo := r.calls[2].rows[0]
	require.Equal(t, "The Matrix", neo["movie"])
	require.Equal(t, []any{"Neo"}, neo["roles"])
}

func TestSeed_OptionalFieldsBecomeNull(t *testing.T) {
	ds := Dataset{
		Movies: []Movie{{Title: "Untitled"}},
		People: []Person{{Name: "Nobody"}},
	}
	r := &fakeRunner{}
	_, err := Seed(context.Background(), r, ds)
	require.NoError(t, err)
	require.Len(t, r.calls, 2, "空的关系列表不应发语句")
	require.Nil(t, r.calls[0].rows[0]["released"])
	require.Nil(t, r.calls[0].rows[0]["tagline"])
	require.Nil(t, r.calls[1].rows[0]["born"])
}

func TestSeed_StopsOnError(t *testing.T) {
	r := &fakeRunner{failAt: 2}
	got, err := Seed(context.Background(), r, Default())
	require.ErrorContains(t, err, "people")
	require.Len(t, r.calls, 2)
	require.Equal(t, len(Default().Movies), got.NodesCreated)
}

func TestParse_RejectsDanglingReference(t *testing.T) {
	_, err := Parse([]byte(`
movies:
  - title: Arrival
acted_in:
  - { movie: Arrival, person: Amy Adams }
`))
	require.ErrorContains(t, err, "Amy Adams")

	_, err = Parse([]byte("movies:\n  - released: 2016\n"))
	require.Error(t, err)

	_, err = Parse([]byte("films: []\n"))
	require.Error(t, err, "未知字段应报错")
}

func TestLoad(t *testing.T) {
	_, err := Load("/nonexistent/seed.yaml")
	require.Error(t, err)
}

func TestSeed_LogsThroughContextLogger(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	ctx := logx.WithLogger(context.Background(), zap.New(core))

	_, err := Seed(ctx, &fakeRunner{}, Default())
	require.NoError(t, err)

	entries := logs.FilterMessage("seed").All()
	require.Len(t, entries, 4)
	require.Equal(t, "movies", entries[0].ContextMap()["step"])
}
