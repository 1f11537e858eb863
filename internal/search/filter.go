// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package search

import (
	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/rs/zerolog/log"
)

// CompileFilter compiles a boolean expression over Row fields, e.g. `Seeders >= 5 && SizeBytes < 4e9`.
func CompileFilter(src string) (*vm.Program, error) {
	return expr.Compile(src, expr.Env(Row{}), expr.AsBool())
}

// accept evaluates the configured filter. Evaluation errors keep the row.
func (e *Engine) accept(row Row) bool {
	if e.filter == nil {
		return true
	}
	out, err := expr.Run(e.filter, row)
	if err != nil {
		log.Debug().Err(err).Str("torrentId", row.TorrentID).Msg("result filter failed, keeping row")
		return true
	}
	ok, _ := out.(bool)
	return ok
}
