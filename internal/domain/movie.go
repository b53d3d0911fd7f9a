package domain

// Movie 是对远端 schema 中 Movie 节点的透传记录。
//
// 约束：
// - Title 被当作 update/delete/关系变更的查找键，但远端从不保证唯一；
//   同名多条记录会被同一次变更全部命中（已知缺陷，保留不修）。
// - 客户端不持有权威副本，只有缓存层里的限时条目。
type Movie struct {
	Title          string   `json:"title"`
	Released       *int     `json:"released"`
	Tagline        *string  `json:"tagline"`
	PeopleActedIn  []Person `json:"peopleActedIn"`
	PeopleDirected []Person `json:"peopleDirected"`
}

// Person 以 Name 作为查找键（同样不保证唯一）。
type Person struct {
	Name string `json:"name"`
	Born *int   `json:"born"`
}

// ActedIn 连接 Person -> Movie，携带角色名（可为空）。
type ActedIn struct {
	Movie  string   `json:"movie"`
	Person string   `json:"person"`
	Roles  []string `json:"roles,omitempty"`
}

// Directed 连接 Person -> Movie，没有属性。
type Directed struct {
	Movie  string `json:"movie"`
	Person string `json:"person"`
}

// DeleteInfo 对应 deleteMovies 的返回。无匹配时两项均为 0，不算错误。
type DeleteInfo struct {
	NodesDeleted         int `json:"nodesDeleted"`
	RelationshipsDeleted int `json:"relationshipsDeleted"`
}

// MovieInput 是 CreateMovie/UpdateMovie 的输入字段。
// UpdateMovie 时 Title 只作为查找键，不会被修改。
type MovieInput struct {
	Title    string  `json:"title"`
	Released *int    `json:"released"`
	Tagline  *string `json:"tagline"`
}

// PersonInput 是 CreatePerson 的输入字段。
type PersonInput struct {
	Name string `json:"name"`
	Born *int   `json:"born"`
}

// RelationKind 区分两种关系。
type RelationKind string

const (
	RelationActedIn  RelationKind = "acted_in"
	RelationDirected RelationKind = "directed"
)

// HasPerson 判断 m 在 kind 关系下是否已包含 name。
func (m Movie) HasPerson(kind RelationKind, name string) bool {
	var list []Person
	switch kind {
	case RelationActedIn:
		list = m.PeopleActedIn
	case RelationDirected:
		list = m.PeopleDirected
	}
	for _, p := range list {
		if p.Name == name {
			return true
		}
	}
	return false
}

// IntPtr / StringPtr 用于构造可选字段。
func IntPtr(v int) *int { return &v }

func StringPtr(s string) *string { return &s }
