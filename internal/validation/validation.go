/*
 * Copyright 2025 The Segue Authors. All rights reserved.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package validation provides struct validation with translated, per-field
// violation messages. It is used for configuration structs and for seed
// payloads arriving from untrusted clients.
package validation

import (
	"errors"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	entranslations "github.com/go-playground/validator/v10/translations/en"
)

var (
	defaultValidator = validator.New()

	// trans translates violations for the fallback 'en' locale.
	trans ut.Translator
)

func init() {
	enLocale := en.New()
	uni := ut.New(enLocale, enLocale)
	trans, _ = uni.GetTranslator(enLocale.Locale())

	if err := entranslations.RegisterDefaultTranslations(defaultValidator, trans); err != nil {
		panic(err)
	}
}

// Violation is one failed validation rule of one field.
type Violation struct {
	Tag         string
	Field       string
	Description string
}

// Error returns the violation message.
func (v Violation) Error() string {
	return v.Description
}

// StructError is the error returned by ValidateStruct, carrying every
// violation found in the struct.
type StructError struct {
	Violations []Violation
}

// Error returns the combined violation messages.
func (s *StructError) Error() string {
	messages := make([]string, len(s.Violations))
	for i, violation := range s.Violations {
		messages[i] = violation.Description
	}
	return strings.Join(messages, ", ")
}

// ValidateStruct validates the given struct by its validate tags and
// returns a StructError listing every violation.
func ValidateStruct(target any) error {
	err := defaultValidator.Struct(target)
	if err == nil {
		return nil
	}

	var invalid *validator.InvalidValidationError
	if errors.As(err, &invalid) {
		return invalid
	}

	structError := &StructError{}
	var fieldErrors validator.ValidationErrors
	if errors.As(err, &fieldErrors) {
		for _, fieldError := range fieldErrors {
			structError.Violations = append(structError.Violations, Violation{
				Tag:         fieldError.Tag(),
				Field:       fieldError.Field(),
				Description: fieldError.Translate(trans),
			})
		}
	}
	return structError
}
