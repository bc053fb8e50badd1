// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package wasm

import "fmt"

// Rule identifies the structural rule violated by a rejected module.
type Rule byte

const (
	RuleMalformed Rule = iota
	RuleSectionOrder
	RuleFloatingPoint
	RuleUnsupported
	RuleImport
	RuleMemory
	RuleTable
	RuleLimit
	RuleExport
	RuleStart
	RuleTypeMismatch
	RuleIndex
	RuleSegment
)

func (r Rule) String() string {
	switch r {
	case RuleMalformed:
		return "malformed"
	case RuleSectionOrder:
		return "section-order"
	case RuleFloatingPoint:
		return "floating-point"
	case RuleUnsupported:
		return "unsupported"
	case RuleImport:
		return "import"
	case RuleMemory:
		return "memory"
	case RuleTable:
		return "table"
	case RuleLimit:
		return "limit"
	case RuleExport:
		return "export"
	case RuleStart:
		return "start"
	case RuleTypeMismatch:
		return "type-mismatch"
	case RuleIndex:
		return "index"
	case RuleSegment:
		return "segment"
	}
	return fmt.Sprintf("Rule(%d)", r)
}

// ValidationError is produced for code that can not be turned into a Module.
type ValidationError struct {
	Rule   Rule
	Detail string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid code, %v: %s", e.Rule, e.Detail)
}

func violation(rule Rule, format string, args ...any) *ValidationError {
	return &ValidationError{Rule: rule, Detail: fmt.Sprintf(format, args...)}
}
