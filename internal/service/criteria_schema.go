package service

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/noah-isme/coursework-engine/internal/models"
)

//go:embed schemas/criteria_options.schema.json
var criteriaOptionsSchemaJSON []byte

const criteriaOptionsSchemaURL = "criteria_options.schema.json"

var (
	criteriaSchemaOnce sync.Once
	criteriaSchema     *jsonschema.Schema
	criteriaSchemaErr  error
)

func compiledCriteriaSchema() (*jsonschema.Schema, error) {
	criteriaSchemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource(criteriaOptionsSchemaURL, bytes.NewReader(criteriaOptionsSchemaJSON)); err != nil {
			criteriaSchemaErr = err
			return
		}
		criteriaSchema, criteriaSchemaErr = compiler.Compile(criteriaOptionsSchemaURL)
	})
	return criteriaSchema, criteriaSchemaErr
}

// CriteriaRubric is a review criterion with its decoded options and the
// score used when a submission received no ratings for it.
type CriteriaRubric struct {
	ID           uint
	Description  string
	Type         models.ReviewCriteriaType
	Options      []models.CriteriaOption
	DefaultScore int
}

// BuildCriteriaRubric validates the stored options of a criterion against
// the options schema and the option struct tags.
func BuildCriteriaRubric(criteria models.ReviewCriteria, validate *validator.Validate) (CriteriaRubric, error) {
	schema, err := compiledCriteriaSchema()
	if err != nil {
		return CriteriaRubric{}, fmt.Errorf("compile criteria schema: %w", err)
	}

	var document interface{}
	if err := json.Unmarshal(criteria.Options, &document); err != nil {
		return CriteriaRubric{}, fmt.Errorf("%w: criteria %d: %v", ErrInvalidCriteriaOptions, criteria.ID, err)
	}
	if err := schema.Validate(document); err != nil {
		return CriteriaRubric{}, fmt.Errorf("%w: criteria %d: %v", ErrInvalidCriteriaOptions, criteria.ID, err)
	}

	options, err := criteria.OptionList()
	if err != nil {
		return CriteriaRubric{}, fmt.Errorf("%w: criteria %d: %v", ErrInvalidCriteriaOptions, criteria.ID, err)
	}
	if validate != nil {
		for _, option := range options {
			if err := validate.Struct(option); err != nil {
				return CriteriaRubric{}, fmt.Errorf("%w: criteria %d: %v", ErrInvalidCriteriaOptions, criteria.ID, err)
			}
		}
	}

	return CriteriaRubric{
		ID:           criteria.ID,
		Description:  criteria.Description,
		Type:         criteria.ReviewCriteriaType,
		Options:      options,
		DefaultScore: CriteriaDefaultScore(options),
	}, nil
}
