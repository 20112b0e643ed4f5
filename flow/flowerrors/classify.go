// Package flowerrors classifies pipeline failures and provides stages that
// observe, rewrite, or retry them.
package flowerrors

import (
	"context"
	"errors"

	"github.com/lguimbarda/fibflow/flow/core"
)

// Kind is the category of a pipeline failure.
type Kind int

const (
	KindNone Kind = iota
	KindContractViolation
	KindConsumerClosed
	KindTransform
	KindProtocolViolation
	KindCanceled
	KindOther
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindContractViolation:
		return "contract-violation"
	case KindConsumerClosed:
		return "consumer-closed"
	case KindTransform:
		return "transform"
	case KindProtocolViolation:
		return "protocol-violation"
	case KindCanceled:
		return "canceled"
	default:
		return "other"
	}
}

// Classify maps err to its Kind. A closure of the destination wins over
// everything else, and a stage defect wins over the failure that exposed it.
func Classify(err error) Kind {
	var te *core.TransformError
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, core.ErrConsumerClosed):
		return KindConsumerClosed
	case errors.Is(err, core.ErrProtocolViolation):
		return KindProtocolViolation
	case errors.Is(err, core.ErrContractViolation):
		return KindContractViolation
	case errors.As(err, &te):
		return KindTransform
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return KindCanceled
	default:
		return KindOther
	}
}

// IsRecoverable reports whether a pipeline can treat err as a normal stop.
// Only a closed consumer qualifies.
func IsRecoverable(err error) bool {
	return Classify(err) == KindConsumerClosed
}
