package answer

import (
	"github.com/EuPathDB/WSF/pkg/dbms"
	"github.com/EuPathDB/WSF/pkg/model"
	"github.com/EuPathDB/WSF/pkg/query"
)

// Service creates answer values. It is shared by every request.
type Service struct {
	// Platform executes composed SQL.
	Platform dbms.Platform

	// Factory persists answers. Nil disables AnswerValue.Answer.
	Factory Factory

	// Reporters resolves reporter implementations. Nil disables reports.
	Reporters *ReporterRegistry
}

// NewService creates a service.
func NewService(platform dbms.Platform, factory Factory, reporters *ReporterRegistry) *Service {
	return &Service{Platform: platform, Factory: factory, Reporters: reporters}
}

// NewAnswerValue creates an answer over a bound id instance.
func (s *Service) NewAnswerValue(question *model.Question, instance query.Instance, opts ...Option) (*AnswerValue, error) {
	return newAnswerValue(s, question, instance, opts...)
}

// MakeAnswerValue binds params to the question's id query and creates an
// answer over the instance.
func (s *Service) MakeAnswerValue(question *model.Question, params map[string]string, opts ...Option) (*AnswerValue, error) {
	instance, err := question.IDQuery.MakeInstance(params)
	if err != nil {
		return nil, err
	}
	return newAnswerValue(s, question, instance, opts...)
}

// attributeInstance binds an attribute query. Attribute queries take no
// params, so every call yields the same SQL.
func (*Service) attributeInstance(q *query.Query) (query.Instance, error) {
	return q.MakeInstance(nil)
}
