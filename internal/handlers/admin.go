// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"log/slog"
	"net/http"

	"catalogo/internal/importer"
)

// Import handles POST /api/admin/import. Per-item failures are reported in
// the result; the response is 201 when anything was created and 200
// otherwise.
func (a *API) Import(w http.ResponseWriter, r *http.Request) {
	var req importer.Request
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := checkStruct(req); err != nil {
		writeError(w, r, err)
		return
	}
	req.CreatedBy = actor(r)

	res, err := a.importer.Import(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	slog.Info("bulk import finished",
		"submitted", len(req.LibraryFileIDs),
		"created", res.Created,
		"failed", res.Failed,
	)

	status := http.StatusOK
	if res.Created > 0 {
		status = http.StatusCreated
	}
	writeJSON(w, status, res)
}
