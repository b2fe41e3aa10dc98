package answer

import (
	"errors"
	"fmt"

	"github.com/EuPathDB/WSF/pkg/model"
	"github.com/EuPathDB/WSF/pkg/query"
)

var (
	// ErrQuestionNotFound is returned when a step names an unknown question.
	ErrQuestionNotFound = errors.New("question not found")

	// ErrInvalidStep is returned for a step that cannot be combined as
	// written.
	ErrInvalidStep = errors.New("invalid step")
)

// Step describes how to build an id instance. A step is either a question
// run with params, optionally fed by input steps through its answer params,
// or a boolean combination of two steps.
type Step struct {
	// Question names the question of a leaf or transform step.
	Question string `json:"question,omitempty"`

	// Params are the id query parameter values.
	Params map[string]string `json:"params,omitempty"`

	// Inputs feed the answer params of a transform question, by param name.
	Inputs map[string]*Step `json:"inputs,omitempty"`

	// Operator combines Left and Right: AND, OR or NOT.
	Operator string `json:"operator,omitempty"`
	Left     *Step  `json:"left,omitempty"`
	Right    *Step  `json:"right,omitempty"`
}

// IsBoolean reports whether the step combines two others.
func (s *Step) IsBoolean() bool {
	return s.Operator != ""
}

// BuildStep resolves step against m. It returns the question whose record
// class and attributes the answer uses and the id instance to page. A
// boolean step answers with the question of its left operand.
func (s *Service) BuildStep(m *model.Model, step *Step) (*model.Question, query.Instance, error) {
	if step == nil {
		return nil, nil, fmt.Errorf("%w: empty step", ErrInvalidStep)
	}
	if step.IsBoolean() {
		return s.buildBoolean(m, step)
	}
	if step.Left != nil || step.Right != nil {
		return nil, nil, fmt.Errorf("%w: operands given without an operator", ErrInvalidStep)
	}
	if step.Question == "" {
		return nil, nil, fmt.Errorf("%w: a step needs a question or an operator", ErrInvalidStep)
	}
	q, err := m.Question(step.Question)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %s", ErrQuestionNotFound, step.Question)
	}
	if !q.IsCombined() {
		if len(step.Inputs) > 0 {
			return nil, nil, fmt.Errorf("%w: question %s takes no input answers", ErrInvalidStep, q.FullName)
		}
		instance, err := q.IDQuery.MakeInstance(step.Params)
		return q, instance, err
	}

	inputs := make(map[string]query.Instance, len(step.Inputs))
	for name, in := range step.Inputs {
		p, ok := q.IDQuery.Param(name)
		if !ok {
			return nil, nil, fmt.Errorf("%w: question %s has no answer param %s", ErrInvalidStep, q.FullName, name)
		}
		ap, ok := p.(*query.AnswerParam)
		if !ok {
			return nil, nil, fmt.Errorf("%w: param %s of question %s is not an answer param", ErrInvalidStep, name, q.FullName)
		}
		iq, instance, err := s.BuildStep(m, in)
		if err != nil {
			return nil, nil, err
		}
		if ap.RecordClass != "" && ap.RecordClass != iq.RecordClass.FullName {
			return nil, nil, fmt.Errorf("%w: answer param %s of %s takes %s records, not %s",
				ErrInvalidStep, name, q.FullName, ap.RecordClass, iq.RecordClass.FullName)
		}
		inputs[name] = instance
	}
	instance, err := q.IDQuery.MakeTransformInstance(step.Params, inputs)
	return q, instance, err
}

func (s *Service) buildBoolean(m *model.Model, step *Step) (*model.Question, query.Instance, error) {
	op, err := query.ParseOperator(step.Operator)
	if err != nil {
		return nil, nil, err
	}
	if step.Left == nil || step.Right == nil {
		return nil, nil, fmt.Errorf("%w: %s needs a left and a right operand", ErrInvalidStep, op)
	}
	if step.Question != "" || len(step.Params) > 0 || len(step.Inputs) > 0 {
		return nil, nil, fmt.Errorf("%w: a %s step takes no question of its own", ErrInvalidStep, op)
	}
	lq, left, err := s.BuildStep(m, step.Left)
	if err != nil {
		return nil, nil, err
	}
	rq, right, err := s.BuildStep(m, step.Right)
	if err != nil {
		return nil, nil, err
	}
	if lq.RecordClass != rq.RecordClass {
		return nil, nil, fmt.Errorf("%w: cannot combine %s records with %s records",
			ErrInvalidStep, lq.RecordClass.FullName, rq.RecordClass.FullName)
	}
	instance, err := query.NewBooleanInstance(op, left, right, lq.RecordClass.PrimaryKeyColumns())
	if err != nil {
		return nil, nil, err
	}
	return lq, instance, nil
}

// MakeStepAnswerValue builds step and creates an answer over its instance.
func (s *Service) MakeStepAnswerValue(m *model.Model, step *Step, opts ...Option) (*AnswerValue, error) {
	q, instance, err := s.BuildStep(m, step)
	if err != nil {
		return nil, err
	}
	return newAnswerValue(s, q, instance, opts...)
}
