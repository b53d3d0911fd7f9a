// Package movies 把固定 operation 目录、缓存层与 transport 组合成带类型的读写操作。
//
// 约束：
// - 客户端校验（空标题、年份越界、空搜索词、重复关系、未确认的删除）一律发生在网络请求之前
// - 读经过缓存层；写直接发往 transport，成功后显式失效相关读 key
// - 以标题为查找键的变更命中多条记录时只记录警告，不做修正
package movies

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/John-Robertt/moviegraph/internal/catalog"
	"github.com/John-Robertt/moviegraph/internal/domain"
	"github.com/John-Robertt/moviegraph/internal/graphql"
	"github.com/John-Robertt/moviegraph/internal/querycache"
)

// 年份的合理范围（上映年份与出生年份共用）。
const (
	MinYear = 1850
	MaxYear = 2200
)

// Doer 是 transport 的最小接口（*graphql.Client 实现它）。
type Doer interface {
	Do(ctx context.Context, req graphql.Request) (json.RawMessage, error)
}

// Confirmer 在删除/移除关系之前征求确认。
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) (bool, error)
}

type ConfirmFunc func(ctx context.Context, prompt string) (bool, error)

func (f ConfirmFunc) Confirm(ctx context.Context, prompt string) (bool, error) { return f(ctx, prompt) }

// Yes 总是确认（对应命令行的 --yes）。
var Yes Confirmer = ConfirmFunc(func(context.Context, string) (bool, error) { return true, nil })

type Service struct {
	doer  Doer
	reg   catalog.Registry
	cache *querycache.Store
	log   *zap.Logger
}

func New(doer Doer, reg catalog.Registry, cache *querycache.Store, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{doer: doer, reg: reg, cache: cache, log: log}
}

// MoviesKey 是电影列表的缓存 key。
func MoviesKey() querycache.Key { return querycache.Key{Op: catalog.GetMovies} }

// PeopleKey 是人物列表的缓存 key。
func PeopleKey() querycache.Key { return querycache.Key{Op: catalog.GetPeople} }

// SearchKey 是搜索结果的缓存 key（按搜索词区分）。
func SearchKey(term string) querycache.Key {
	return querycache.Key{Op: catalog.SearchAll, Vars: map[string]any{"searchTerm": term}}
}

func (s *Service) read(ctx context.Context, key querycache.Key, out any) error {
	op := s.reg.MustGet(key.Op)
	data, err := s.cache.Get(ctx, key, func(ctx context.Context) (json.RawMessage, error) {
		return s.doer.Do(ctx, catalog.Request(op, key.Vars))
	})
	if err != nil {
		return err
	}
	return graphql.DecodeField(data, op.Field, out)
}

// mutate 发送变更。Do 成功即表示服务端已提交，先失效 stale 指定的读 key 再解码，
// 解码失败也不会留下过时的缓存。
func (s *Service) mutate(ctx context.Context, name string, vars map[string]any, out any, stale ...string) error {
	op := s.reg.MustGet(name)
	data, err := s.doer.Do(ctx, catalog.Request(op, vars))
	if err != nil {
		s.log.Warn("变更失败", zap.String("operation", name), zap.Error(err))
		return err
	}
	s.cache.InvalidateOp(stale...)
	return graphql.DecodeField(data, op.Field, out)
}

// Movies 返回全部电影（按上映年份升序，顺序由服务端决定）。
func (s *Service) Movies(ctx context.Context) ([]domain.Movie, error) {
	var out []domain.Movie
	if err := s.read(ctx, MoviesKey(), &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) People(ctx context.Context) ([]domain.Person, error) {
	var out []domain.Person
	if err := s.read(ctx, PeopleKey(), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Search 在标题与标语中做子串匹配（OR），结果按上映年份升序。
// 搜索词为空时不发请求。
func (s *Service) Search(ctx context.Context, term string) ([]domain.Movie, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return nil, &domain.ValidationError{Code: domain.ErrCodeEmptySearch, Field: "searchTerm", Msg: "搜索词不能为空"}
	}
	var out []domain.Movie
	if err := s.read(ctx, SearchKey(term), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// movieReads 是电影相关变更之后需要失效的读。
var movieReads = []string{catalog.GetMovies, catalog.SearchAll}

type moviesPayload struct {
	Movies []domain.Movie `json:"movies"`
}

type peoplePayload struct {
	People []domain.Person `json:"people"`
}

func (s *Service) CreateMovie(ctx context.Context, in domain.MovieInput) (domain.Movie, error) {
	vars, err := movieVars(in)
	if err != nil {
		return domain.Movie{}, err
	}
	var p moviesPayload
	if err := s.mutate(ctx, catalog.CreateMovie, vars, &p, movieReads...); err != nil {
		return domain.Movie{}, err
	}
	if len(p.Movies) == 0 {
		return domain.Movie{}, &graphql.Error{Operation: catalog.CreateMovie, Kind: graphql.KindDecode, Err: fmt.Errorf("响应中没有创建的电影")}
	}
	return p.Movies[0], nil
}

// UpdateMovie 按标题更新上映年份/标语，返回所有被更新的记录。
// 同名电影有 N 条时 N 条都会被更新；没有匹配时返回空列表。
// Released/Tagline 为 nil 的字段不会被修改。
func (s *Service) UpdateMovie(ctx context.Context, in domain.MovieInput) ([]domain.Movie, error) {
	vars, err := movieVars(in)
	if err != nil {
		return nil, err
	}
	var p moviesPayload
	if err := s.mutate(ctx, catalog.UpdateMovie, vars, &p, movieReads...); err != nil {
		return nil, err
	}
	s.warnDuplicates(catalog.UpdateMovie, vars["title"].(string), len(p.Movies))
	return p.Movies, nil
}

// DeleteMovie 删除所有同名电影。没有匹配时返回零计数，不算错误。
func (s *Service) DeleteMovie(ctx context.Context, title string, c Confirmer) (domain.DeleteInfo, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return domain.DeleteInfo{}, domain.Invalid("title", "不能为空")
	}
	if err := confirm(ctx, c, fmt.Sprintf("删除电影《%s》（同名记录会全部删除）？", title)); err != nil {
		return domain.DeleteInfo{}, err
	}
	var info domain.DeleteInfo
	if err := s.mutate(ctx, catalog.DeleteMovie, map[string]any{"title": title}, &info, movieReads...); err != nil {
		return domain.DeleteInfo{}, err
	}
	s.warnDuplicates(catalog.DeleteMovie, title, info.NodesDeleted)
	return info, nil
}

func (s *Service) CreatePerson(ctx context.Context, in domain.PersonInput) (domain.Person, error) {
	if err := ValidatePerson(in); err != nil {
		return domain.Person{}, err
	}
	vars := map[string]any{"name": strings.TrimSpace(in.Name)}
	if in.Born != nil {
		vars["born"] = *in.Born
	}
	var p peoplePayload
	if err := s.mutate(ctx, catalog.CreatePerson, vars, &p, catalog.GetPeople); err != nil {
		return domain.Person{}, err
	}
	if len(p.People) == 0 {
		return domain.Person{}, &graphql.Error{Operation: catalog.CreatePerson, Kind: graphql.KindDecode, Err: fmt.Errorf("响应中没有创建的人物")}
	}
	return p.People[0], nil
}

// AssignActor 建立 acted_in 关系。若本地已有新鲜的电影列表且其中已包含该关系，
// 直接返回 already_assigned，不发请求。
func (s *Service) AssignActor(ctx context.Context, rel domain.ActedIn) ([]domain.Movie, error) {
	movie, person, err := relationArgs(rel.Movie, rel.Person)
	if err != nil {
		return nil, err
	}
	if err := s.precheck(domain.RelationActedIn, movie, person); err != nil {
		return nil, err
	}
	vars := map[string]any{"movieTitle": movie, "actorName": person}
	if roles := cleanRoles(rel.Roles); len(roles) > 0 {
		vars["roles"] = roles
	}
	return s.relate(ctx, catalog.AssignActor, movie, vars)
}

func (s *Service) RemoveActor(ctx context.Context, movie, person string, c Confirmer) ([]domain.Movie, error) {
	movie, person, err := relationArgs(movie, person)
	if err != nil {
		return nil, err
	}
	if err := confirm(ctx, c, fmt.Sprintf("从《%s》移除演员 %s？", movie, person)); err != nil {
		return nil, err
	}
	return s.relate(ctx, catalog.RemoveActor, movie, map[string]any{"movieTitle": movie, "actorName": person})
}

func (s *Service) AssignDirector(ctx context.Context, rel domain.Directed) ([]domain.Movie, error) {
	movie, person, err := relationArgs(rel.Movie, rel.Person)
	if err != nil {
		return nil, err
	}
	if err := s.precheck(domain.RelationDirected, movie, person); err != nil {
		return nil, err
	}
	return s.relate(ctx, catalog.AssignDirector, movie, map[string]any{"movieTitle": movie, "directorName": person})
}

func (s *Service) RemoveDirector(ctx context.Context, movie, person string, c Confirmer) ([]domain.Movie, error) {
	movie, person, err := relationArgs(movie, person)
	if err != nil {
		return nil, err
	}
	if err := confirm(ctx, c, fmt.Sprintf("从《%s》移除导演 %s？", movie, person)); err != nil {
		return nil, err
	}
	return s.relate(ctx, catalog.RemoveDirector, movie, map[string]any{"movieTitle": movie, "directorName": person})
}

func (s *Service) relate(ctx context.Context, name, movie string, vars map[string]any) ([]domain.Movie, error) {
	var p moviesPayload
	if err := s.mutate(ctx, name, vars, &p, movieReads...); err != nil {
		return nil, err
	}
	s.warnDuplicates(name, movie, len(p.Movies))
	return p.Movies, nil
}

// precheck 只看本地新鲜的电影列表；没有或已过期时交给服务端（服务端 connect 本身幂等）。
func (s *Service) precheck(kind domain.RelationKind, movie, person string) error {
	data, fresh, ok := s.cache.Peek(MoviesKey())
	if !ok || !fresh {
		return nil
	}
	var list []domain.Movie
	if err := graphql.DecodeField(data, s.reg.MustGet(catalog.GetMovies).Field, &list); err != nil {
		return nil
	}
	for _, m := range list {
		if m.Title == movie && m.HasPerson(kind, person) {
			return &domain.ValidationError{
				Code: domain.ErrCodeAlreadyAssigned,
				Msg:  fmt.Sprintf("%s 已经是《%s》的%s", person, movie, kindLabel(kind)),
			}
		}
	}
	return nil
}

// Refresh 让全部读取下次都回源（交互界面的手动刷新）。
func (s *Service) Refresh() {
	s.cache.InvalidateOp(catalog.GetMovies, catalog.GetPeople, catalog.SearchAll)
}

func (s *Service) warnDuplicates(op, title string, n int) {
	if n > 1 {
		s.log.Warn("标题不是唯一键：一次变更命中了多条记录",
			zap.String("operation", op),
			zap.String("title", title),
			zap.Int("matched", n))
	}
}

// ValidateMovie 是 CreateMovie/UpdateMovie 的客户端校验。
func ValidateMovie(in domain.MovieInput) error {
	if strings.TrimSpace(in.Title) == "" {
		return domain.Invalid("title", "不能为空")
	}
	return checkYear("released", in.Released)
}

// ValidatePerson 是 CreatePerson 的客户端校验。
func ValidatePerson(in domain.PersonInput) error {
	if strings.TrimSpace(in.Name) == "" {
		return domain.Invalid("name", "不能为空")
	}
	return checkYear("born", in.Born)
}

func movieVars(in domain.MovieInput) (map[string]any, error) {
	if err := ValidateMovie(in); err != nil {
		return nil, err
	}
	vars := map[string]any{"title": strings.TrimSpace(in.Title)}
	if in.Released != nil {
		vars["released"] = *in.Released
	}
	if in.Tagline != nil {
		vars["tagline"] = *in.Tagline
	}
	return vars, nil
}

func checkYear(field string, v *int) error {
	if v == nil {
		return nil
	}
	if *v < MinYear || *v > MaxYear {
		return domain.Invalid(field, fmt.Sprintf("应在 %d..%d 之间，实际 %d", MinYear, MaxYear, *v))
	}
	return nil
}

func relationArgs(movie, person string) (string, string, error) {
	movie = strings.TrimSpace(movie)
	person = strings.TrimSpace(person)
	if movie == "" {
		return "", "", domain.Invalid("movie", "不能为空")
	}
	if person == "" {
		return "", "", domain.Invalid("person", "不能为空")
	}
	return movie, person, nil
}

func cleanRoles(roles []string) []string {
	out := make([]string, 0, len(roles))
	for _, r := range roles {
		if r = strings.TrimSpace(r); r != "" {
			out = append(out, r)
		}
	}
	return out
}

func confirm(ctx context.Context, c Confirmer, prompt string) error {
	if c == nil {
		return &domain.ValidationError{Code: domain.ErrCodeNotConfirmed, Msg: "需要确认（--yes）"}
	}
	ok, err := c.Confirm(ctx, prompt)
	if err != nil {
		return err
	}
	if !ok {
		return &domain.ValidationError{Code: domain.ErrCodeNotConfirmed, Msg: "已取消"}
	}
	return nil
}

func kindLabel(kind domain.RelationKind) string {
	if kind == domain.RelationDirected {
		return "导演"
	}
	return "演员"
}
