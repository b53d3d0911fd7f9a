// Package fakegraph 是测试用的内存 GraphQL endpoint：按 operationName 分派，
// 行为模拟托管服务（标题不唯一、connect 幂等、搜索按上映年份升序）。
package fakegraph

import (
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"

	jsoniter "github.com/json-iterator/go"

	"github.com/John-Robertt/moviegraph/internal/domain"
)

var codec = jsoniter.ConfigCompatibleWithStandardLibrary

type movie struct {
	title    string
	released *int
	tagline  *string
	actedIn  []string
	roles    map[string][]string
	directed []string
}

// Failure 描述一次注入的失败：Status 非 0 时返回该 HTTP 状态，否则在 errors 中返回 Message。
type Failure struct {
	Status  int
	Message string
}

type Server struct {
	*httptest.Server

	mu       sync.Mutex
	movies   []*movie
	people   []domain.Person
	counts   map[string]int
	failures map[string][]Failure
	keyName  string
	keyValue string
}

func New() *Server {
	s := &Server{
		counts:   map[string]int{},
		failures: map[string][]Failure{},
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	return s
}

// RequireKey 让服务端只接受带指定 API key 的请求。
func (s *Server) RequireKey(header, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keyName, s.keyValue = header, value
}

// AddMovie 直接写入一条电影（不计入请求数）。
func (s *Server) AddMovie(title string, released int, tagline string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := &movie{title: title, roles: map[string][]string{}}
	if released != 0 {
		m.released = domain.IntPtr(released)
	}
	if tagline != "" {
		m.tagline = domain.StringPtr(tagline)
	}
	s.movies = append(s.movies, m)
}

func (s *Server) AddPerson(name string, born int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := domain.Person{Name: name}
	if born != 0 {
		p.Born = domain.IntPtr(born)
	}
	s.people = append(s.people, p)
}

// Count 返回 op 收到的请求数（包括注入失败的请求）。
func (s *Server) Count(op string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counts[op]
}

// Total 返回全部请求数。
func (s *Server) Total() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.counts {
		n += c
	}
	return n
}

// FailNext 让 op 接下来的 n 次请求按 f 失败。
func (s *Server) FailNext(op string, n int, f Failure) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := 0; i < n; i++ {
		s.failures[op] = append(s.failures[op], f)
	}
}

// Relationships 返回 (title, person) 的 acted_in / directed 关系条数（跨所有同名电影求和）。
func (s *Server) Relationships(kind domain.RelationKind, title, person string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, m := range s.movies {
		if m.title != title {
			continue
		}
		list := m.actedIn
		if kind == domain.RelationDirected {
			list = m.directed
		}
		for _, p := range list {
			if p == person {
				n++
			}
		}
	}
	return n
}

// Roles 返回第一条名为 title 的电影里 person 的角色。
func (s *Server) Roles(title, person string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.movies {
		if m.title == title {
			return append([]string(nil), m.roles[person]...)
		}
	}
	return nil
}

type request struct {
	Query         string         `json:"query"`
	OperationName string         `json:"operationName"`
	Variables     map[string]any `json:"variables"`
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	b, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	var req request
	if err := codec.Unmarshal(b, &req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.counts[req.OperationName]++

	if s.keyName != "" && r.Header.Get(s.keyName) != s.keyValue {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"message": "Unauthorized"})
		return
	}
	if q := s.failures[req.OperationName]; len(q) > 0 {
		f := q[0]
		s.failures[req.OperationName] = q[1:]
		if f.Status != 0 {
			writeJSON(w, f.Status, map[string]any{"message": f.Message})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"data":   nil,
			"errors": []map[string]any{{"message": f.Message}},
		})
		return
	}

	data, msg := s.dispatch(req.OperationName, req.Variables)
	if msg != "" {
		writeJSON(w, http.StatusOK, map[string]any{
			"data":   nil,
			"errors": []map[string]any{{"message": msg}},
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": data})
}

func (s *Server) dispatch(op string, vars map[string]any) (map[string]any, string) {
	switch op {
	case "GetMovies":
		return map[string]any{"movies": s.render(s.sorted(func(*movie) bool { return true }))}, ""
	case "GetPeople":
		people := append([]domain.Person{}, s.people...)
		sort.SliceStable(people, func(i, j int) bool { return people[i].Name < people[j].Name })
		return map[string]any{"people": people}, ""
	case "SearchAll":
		term := strings.ToLower(str(vars, "searchTerm"))
		return map[string]any{"movies": s.render(s.sorted(func(m *movie) bool {
			if strings.Contains(strings.ToLower(m.title), term) {
				return true
			}
			return m.tagline != nil && strings.Contains(strings.ToLower(*m.tagline), term)
		}))}, ""
	case "CreateMovie":
		m := &movie{title: str(vars, "title"), roles: map[string][]string{}}
		m.released = intPtr(vars, "released")
		if v, ok := vars["tagline"].(string); ok {
			m.tagline = domain.StringPtr(v)
		}
		s.movies = append(s.movies, m)
		return map[string]any{"createMovies": map[string]any{"movies": s.render([]*movie{m})}}, ""
	case "UpdateMovie":
		matched := s.byTitle(str(vars, "title"))
		for _, m := range matched {
			if _, ok := vars["released"]; ok {
				m.released = intPtr(vars, "released")
			}
			if v, ok := vars["tagline"]; ok {
				if t, isStr := v.(string); isStr {
					m.tagline = domain.StringPtr(t)
				} else {
					m.tagline = nil
				}
			}
		}
		return map[string]any{"updateMovies": map[string]any{"movies": s.render(matched)}}, ""
	case "DeleteMovie":
		title := str(vars, "title")
		var keep []*movie
		info := domain.DeleteInfo{}
		for _, m := range s.movies {
			if m.title == title {
				info.NodesDeleted++
				info.RelationshipsDeleted += len(m.actedIn) + len(m.directed)
				continue
			}
			keep = append(keep, m)
		}
		s.movies = keep
		return map[string]any{"deleteMovies": info}, ""
	case "CreatePerson":
		p := domain.Person{Name: str(vars, "name"), Born: intPtr(vars, "born")}
		s.people = append(s.people, p)
		return map[string]any{"createPeople": map[string]any{"people": []domain.Person{p}}}, ""
	case "AssignActor", "RemoveActor", "AssignDirector", "RemoveDirector":
		return s.relationship(op, vars), ""
	default:
		return nil, "Unknown operation " + op
	}
}

func (s *Server) relationship(op string, vars map[string]any) map[string]any {
	matched := s.byTitle(str(vars, "movieTitle"))
	name := str(vars, "actorName")
	if strings.HasSuffix(op, "Director") {
		name = str(vars, "directorName")
	}
	exists := false
	for _, p := range s.people {
		if p.Name == name {
			exists = true
			break
		}
	}

	for _, m := range matched {
		switch op {
		case "AssignActor":
			if exists && !contains(m.actedIn, name) {
				m.actedIn = append(m.actedIn, name)
				m.roles[name] = strs(vars, "roles")
			}
		case "RemoveActor":
			m.actedIn = remove(m.actedIn, name)
			delete(m.roles, name)
		case "AssignDirector":
			if exists && !contains(m.directed, name) {
				m.directed = append(m.directed, name)
			}
		case "RemoveDirector":
			m.directed = remove(m.directed, name)
		}
	}
	return map[string]any{"updateMovies": map[string]any{"movies": s.render(matched)}}
}

func (s *Server) byTitle(title string) []*movie {
	var out []*movie
	for _, m := range s.movies {
		if m.title == title {
			out = append(out, m)
		}
	}
	return out
}

// sorted 按上映年份升序（年份缺失排最后），同年保持插入顺序。
func (s *Server) sorted(keep func(*movie) bool) []*movie {
	var out []*movie
	for _, m := range s.movies {
		if keep(m) {
			out = append(out, m)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].released, out[j].released
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return *a < *b
		}
	})
	return out
}

func (s *Server) render(ms []*movie) []domain.Movie {
	out := make([]domain.Movie, 0, len(ms))
	for _, m := range ms {
		out = append(out, domain.Movie{
			Title:          m.title,
			Released:       m.released,
			Tagline:        m.tagline,
			PeopleActedIn:  s.persons(m.actedIn),
			PeopleDirected: s.persons(m.directed),
		})
	}
	return out
}

func (s *Server) persons(names []string) []domain.Person {
	out := make([]domain.Person, 0, len(names))
	for _, n := range names {
		p := domain.Person{Name: n}
		for _, known := range s.people {
			if known.Name == n {
				p = known
				break
			}
		}
		out = append(out, p)
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	b, _ := codec.Marshal(v)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(b)
}

func str(vars map[string]any, k string) string {
	v, _ := vars[k].(string)
	return v
}

func intPtr(vars map[string]any, k string) *int {
	if f, ok := vars[k].(float64); ok {
		return domain.IntPtr(int(f))
	}
	return nil
}

func strs(vars map[string]any, k string) []string {
	raw, _ := vars[k].([]any)
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func contains(list []string, v string) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}

func remove(list []string, v string) []string {
	out := list[:0]
	for _, x := range list {
		if x != v {
			out = append(out, x)
		}
	}
	return out
}
