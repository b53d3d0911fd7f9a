package seed

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	"github.com/John-Robertt/moviegraph/internal/infra/logx"
)

// Counters 汇总写入统计。
type Counters struct {
	NodesCreated         int `json:"nodes_created"`
	RelationshipsCreated int `json:"relationships_created"`
	PropertiesSet        int `json:"properties_set"`
}

func (c *Counters) add(o Counters) {
	c.NodesCreated += o.NodesCreated
	c.RelationshipsCreated += o.RelationshipsCreated
	c.PropertiesSet += o.PropertiesSet
}

// Runner 执行一条写语句。
type Runner interface {
	Run(ctx context.Context, cypher string, params map[string]any) (Counters, error)
}

const (
	mergeMovies = `UNWIND $rows AS row
MERGE (m:Movie {title: row.title})
SET m.released = row.released, m.tagline = row.tagline`

	mergePeople = `UNWIND $rows AS row
MERGE (p:Person {name: row.name})
SET p.born = row.born`

	mergeActedIn = `UNWIND $rows AS row
MATCH (p:Person {name: row.person}), (m:Movie {title: row.movie})
MERGE (p)-[r:ACTED_IN]->(m)
SET r.roles = row.roles`

	mergeDirected = `UNWIND $rows AS row
MATCH (p:Person {name: row.person}), (m:Movie {title: row.movie})
MERGE (p)-[:DIRECTED]->(m)`
)

// Seed 依次写入电影、人物、acted_in、directed；任一步失败即返回。
//
// 日志取自 ctx（logx.WithLogger），没有时不输出。
func Seed(ctx context.Context, r Runner, ds Dataset) (Counters, error) {
	log := logx.FromContext(ctx)
	if err := ds.Validate(); err != nil {
		return Counters{}, err
	}

	steps := []struct {
		name   string
		cypher string
		rows   []map[string]any
	}{
		{"movies", mergeMovies, movieRows(ds.Movies)},
		{"people", mergePeople, personRows(ds.People)},
		{"acted_in", mergeActedIn, actedInRows(ds.ActedIn)},
		{"directed", mergeDirected, directedRows(ds.Directed)},
	}

	var total Counters
	for _, st := range steps {
		if len(st.rows) == 0 {
			continue
		}
		c, err := r.Run(ctx, st.cypher, map[string]any{"rows": st.rows})
		if err != nil {
			return total, fmt.Errorf("写入 %s 失败：%w", st.name, err)
		}
		log.Info("seed",
			zap.String("step", st.name),
			zap.Int("rows", len(st.rows)),
			zap.Int("nodes_created", c.NodesCreated),
			zap.Int("relationships_created", c.RelationshipsCreated))
		total.add(c)
	}
	return total, nil
}

// 0 / 空串写成 null，避免把“未知”写成有效值。
func optInt(v int) any {
	if v == 0 {
		return nil
	}
	return v
}

func optString(v string) any {
	if v == "" {
		return nil
	}
	return v
}

func movieRows(ms []Movie) []map[string]any {
	out := make([]map[string]any, 0, len(ms))
	for _, m := range ms {
		out = append(out, map[string]any{
			"title":    m.Title,
			"released": optInt(m.Released),
			"tagline":  optString(m.Tagline),
		})
	}
	return out
}

func personRows(ps []Person) []map[string]any {
	out := make([]map[string]any, 0, len(ps))
	for _, p := range ps {
		out = append(out, map[string]any{"name": p.Name, "born": optInt(p.Born)})
	}
	return out
}

func actedInRows(rs []ActedIn) []map[string]any {
	out := make([]map[string]any, 0, len(rs))
	for _, r := range rs {
		roles := make([]any, 0, len(r.Roles))
		for _, role := range r.Roles {
			roles = append(roles, role)
		}
		out = append(out, map[string]any{"movie": r.Movie, "person": r.Person, "roles": roles})
	}
	return out
}

func directedRows(rs []Directed) []map[string]any {
	out := make([]map[string]any, 0, len(rs))
	for _, r := range rs {
		out = append(out, map[string]any{"movie": r.Movie, "person": r.Person})
	}
	return out
}

// Neo4jRunner 通过 Bolt 执行语句（写路由）。
type Neo4jRunner struct {
	driver   neo4j.DriverWithContext
	database string
}

// Neo4jOptions 描述 Bolt 连接参数。Username 为空时不认证。
type Neo4jOptions struct {
	URI      string
	Username string
	Password string
	Database string
}

// NewNeo4jRunner 建立 driver 并验证连通性。
func NewNeo4jRunner(ctx context.Context, opts Neo4jOptions) (*Neo4jRunner, error) {
	auth := neo4j.NoAuth()
	if opts.Username != "" {
		auth = neo4j.BasicAuth(opts.Username, opts.Password, "")
	}
	driver, err := neo4j.NewDriverWithContext(opts.URI, auth)
	if err != nil {
		return nil, fmt.Errorf("创建 neo4j driver 失败：%w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("连接 neo4j 失败：%w", err)
	}
	return &Neo4jRunner{driver: driver, database: opts.Database}, nil
}

func (r *Neo4jRunner) Run(ctx context.Context, cypher string, params map[string]any) (Counters, error) {
	opts := []neo4j.ExecuteQueryConfigurationOption{neo4j.ExecuteQueryWithWritersRouting()}
	if r.database != "" {
		opts = append(opts, neo4j.ExecuteQueryWithDatabase(r.database))
	}
	res, err := neo4j.ExecuteQuery(ctx, r.driver, cypher, params, neo4j.EagerResultTransformer, opts...)
	if err != nil {
		return Counters{}, err
	}
	c := res.Summary.Counters()
	return Counters{
		NodesCreated:         c.NodesCreated(),
		RelationshipsCreated: c.RelationshipsCreated(),
		PropertiesSet:        c.PropertiesSet(),
	}, nil
}

func (r *Neo4jRunner) Close(ctx context.Context) error {
	return r.driver.Close(ctx)
}
