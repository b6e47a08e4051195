// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package constants

// Scenario identifiers select the query dialect and field naming of an index set.
const (
	ScenarioES     = "es"
	ScenarioBKData = "bkdata"
	ScenarioLog    = "log"
)

// Time field descriptors.
const (
	TimeFieldTypeDate        = "date"
	TimeFieldUnitSecond      = "second"
	TimeFieldUnitMillisecond = "millisecond"
	// EventTimeField is the time field of the live document scenarios
	EventTimeField = "dtEventTimeStamp"
)

// Target node types of a host scope.
const (
	TargetNodeTypeInstance = "INSTANCE"
	TargetNodeTypeTopo     = "TOPO"
)

// Field kinds of a normalized condition.
const (
	FieldKindPlain  = "field"
	FieldKindNested = "nested"
)

// Condition operators with dedicated handling.
const (
	OperatorIs             = "is"
	OperatorIsNot          = "is not"
	OperatorIsOneOf        = "is one of"
	OperatorIsNotOneOf     = "is not one of"
	OperatorEq             = "eq"
	OperatorExists         = "exists"
	OperatorDoesNotExist   = "does not exist"
	OperatorDoesNotExists  = "does not exists"
	OperatorContains       = "contains"
	OperatorNotContains    = "not contains"
	ConditionAnd           = "and"
	ConditionOr            = "or"
	// ExistsPlaceholderValue is the value carried by exists / does not exist conditions
	ExistsPlaceholderValue = "0"
)
