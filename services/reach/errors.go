// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package reach

import (
	"context"
	"errors"
	"net/http"

	"github.com/AleutianAI/AleutianReach/services/reach/algorithms"
	"github.com/AleutianAI/AleutianReach/services/reach/machine"
)

// ErrUnknownVariant indicates a request named a variant that does not exist.
var ErrUnknownVariant = errors.New("unknown variant")

// errorStatus maps a solve error to an HTTP status and error code.
//
// Input problems are 400, unsolvable machines are 422 and exhausted
// budgets or deadlines are 504. Anything else is a 500.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, machine.ErrFormat):
		return http.StatusBadRequest, "INVALID_FORMAT"
	case errors.Is(err, machine.ErrMalformedMachine):
		return http.StatusBadRequest, "MALFORMED_MACHINE"
	case errors.Is(err, ErrUnknownVariant):
		return http.StatusBadRequest, "UNKNOWN_VARIANT"
	case errors.Is(err, algorithms.ErrUnknownAlgorithm):
		return http.StatusBadRequest, "UNKNOWN_STRATEGY"
	case errors.Is(err, algorithms.ErrVariantMismatch):
		return http.StatusBadRequest, "VARIANT_MISMATCH"
	case errors.Is(err, algorithms.ErrInfeasible):
		return http.StatusUnprocessableEntity, "INFEASIBLE"
	case errors.Is(err, algorithms.ErrUnsupportedEncoding):
		return http.StatusUnprocessableEntity, "UNSUPPORTED_ENCODING"
	case errors.Is(err, algorithms.ErrSearchBudgetExceeded):
		return http.StatusGatewayTimeout, "BUDGET_EXCEEDED"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "TIMEOUT"
	default:
		return http.StatusInternalServerError, "SOLVE_FAILED"
	}
}
