package catalog

// 固定目录中的 operation 名。
const (
	GetMovies      = "GetMovies"
	GetPeople      = "GetPeople"
	CreateMovie    = "CreateMovie"
	UpdateMovie    = "UpdateMovie"
	DeleteMovie    = "DeleteMovie"
	CreatePerson   = "CreatePerson"
	AssignActor    = "AssignActor"
	RemoveActor    = "RemoveActor"
	AssignDirector = "AssignDirector"
	RemoveDirector = "RemoveDirector"
	SearchAll      = "SearchAll"
)

const movieFields = `
      title
      released
      tagline
      peopleActedIn {
        name
        born
      }
      peopleDirected {
        name
        born
      }`

const personFields = `
      name
      born`

// Standard 返回完整的固定目录。
func Standard() []Operation {
	return []Operation{
		{
			Name:  GetMovies,
			Kind:  KindQuery,
			Field: "movies",
			Document: `query GetMovies {
  movies(options: { sort: [{ released: ASC }] }) {` + movieFields + `
  }
}`,
		},
		{
			Name:  GetPeople,
			Kind:  KindQuery,
			Field: "people",
			Document: `query GetPeople {
  people(options: { sort: [{ name: ASC }] }) {` + personFields + `
  }
}`,
		},
		{
			Name:      CreateMovie,
			Kind:      KindMutation,
			Field:     "createMovies",
			Variables: []string{"title", "released", "tagline"},
			Document: `mutation CreateMovie($title: String!, $released: Int, $tagline: String) {
  createMovies(input: [{ title: $title, released: $released, tagline: $tagline }]) {
    movies {` + movieFields + `
    }
  }
}`,
		},
		{
			Name:      UpdateMovie,
			Kind:      KindMutation,
			Field:     "updateMovies",
			Variables: []string{"title", "released", "tagline"},
			Document: `mutation UpdateMovie($title: String!, $released: Int, $tagline: String) {
  updateMovies(where: { title: $title }, update: { released: $released, tagline: $tagline }) {
    movies {` + movieFields + `
    }
  }
}`,
		},
		{
			Name:      DeleteMovie,
			Kind:      KindMutation,
			Field:     "deleteMovies",
			Variables: []string{"title"},
			Document: `mutation DeleteMovie($title: String!) {
  deleteMovies(where: { title: $title }) {
    nodesDeleted
    relationshipsDeleted
  }
}`,
		},
		{
			Name:      CreatePerson,
			Kind:      KindMutation,
			Field:     "createPeople",
			Variables: []string{"name", "born"},
			Document: `mutation CreatePerson($name: String!, $born: Int) {
  createPeople(input: [{ name: $name, born: $born }]) {
    people {` + personFields + `
    }
  }
}`,
		},
		{
			Name:      AssignActor,
			Kind:      KindMutation,
			Field:     "updateMovies",
			Variables: []string{"movieTitle", "actorName", "roles"},
			Document: `mutation AssignActor($movieTitle: String!, $actorName: String!, $roles: [String!]) {
  updateMovies(
    where: { title: $movieTitle }
    connect: { peopleActedIn: [{ where: { node: { name: $actorName } }, edge: { roles: $roles } }] }
  ) {
    movies {
      title
      peopleActedIn {` + personFields + `
      }
    }
  }
}`,
		},
		{
			Name:      RemoveActor,
			Kind:      KindMutation,
			Field:     "updateMovies",
			Variables: []string{"movieTitle", "actorName"},
			Document: `mutation RemoveActor($movieTitle: String!, $actorName: String!) {
  updateMovies(
    where: { title: $movieTitle }
    disconnect: { peopleActedIn: [{ where: { node: { name: $actorName } } }] }
  ) {
    movies {
      title
      peopleActedIn {` + personFields + `
      }
    }
  }
}`,
		},
		{
			Name:      AssignDirector,
			Kind:      KindMutation,
			Field:     "updateMovies",
			Variables: []string{"movieTitle", "directorName"},
			Document: `mutation AssignDirector($movieTitle: String!, $directorName: String!) {
  updateMovies(
    where: { title: $movieTitle }
    connect: { peopleDirected: [{ where: { node: { name: $directorName } } }] }
  ) {
    movies {
      title
      peopleDirected {` + personFields + `
      }
    }
  }
}`,
		},
		{
			Name:      RemoveDirector,
			Kind:      KindMutation,
			Field:     "updateMovies",
			Variables: []string{"movieTitle", "directorName"},
			Document: `mutation RemoveDirector($movieTitle: String!, $directorName: String!) {
  updateMovies(
    where: { title: $movieTitle }
    disconnect: { peopleDirected: [{ where: { node: { name: $directorName } } }] }
  ) {
    movies {
      title
      peopleDirected {` + personFields + `
      }
    }
  }
}`,
		},
		// 子串匹配走服务端的 _CONTAINS 过滤，大小写是否敏感取决于服务端（Neo4j GraphQL
		// 默认区分大小写）。客户端不改写搜索词。
		{
			Name:      SearchAll,
			Kind:      KindQuery,
			Field:     "movies",
			Variables: []string{"searchTerm"},
			Document: `query SearchAll($searchTerm: String!) {
  movies(
    where: { OR: [{ title_CONTAINS: $searchTerm }, { tagline_CONTAINS: $searchTerm }] }
    options: { sort: [{ released: ASC }] }
  ) {` + movieFields + `
  }
}`,
		},
	}
}

// StandardRegistry 用固定目录构造 Registry。
func StandardRegistry() Registry {
	r, err := NewRegistry(Standard()...)
	if err != nil {
		panic(err)
	}
	return r
}
