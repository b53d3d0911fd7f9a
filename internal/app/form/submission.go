package form

import (
	"strings"

	"github.com/John-Robertt/moviegraph/internal/domain"
)

// Submission 是提交时一次性确定的变更意图：Create 或 Update。
type Submission interface {
	isSubmission()
}

type Create struct {
	Fields domain.MovieInput
}

// Update 以 Key（原标题）作为查找键；Fields.Title 总是等于 Key。
type Update struct {
	Key    string
	Fields domain.MovieInput
}

func (Create) isSubmission() {}
func (Update) isSubmission() {}

// Resolve 根据是否存在 existing 决定提交 Create 还是 Update。
// 编辑已有电影时标题是查找键，不允许修改。
func Resolve(existing *domain.Movie, input domain.MovieInput) (Submission, error) {
	if existing == nil {
		return Create{Fields: input}, nil
	}
	if t := strings.TrimSpace(input.Title); t != "" && t != existing.Title {
		return nil, domain.Invalid("title", "编辑时不能修改标题（标题是查找键）")
	}
	input.Title = existing.Title
	return Update{Key: existing.Title, Fields: input}, nil
}
