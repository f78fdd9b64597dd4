package api

import (
	"encoding/json"
	"io"
	"iter"
	"net/http"
)

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteJSONSeq streams seq as a JSON array without buffering it.
// The status line is committed with the first element (or with "[]" for an
// empty sequence); started reports whether that happened, so callers can
// still answer with an error body when the sequence fails up front.
func WriteJSONSeq[T any](w http.ResponseWriter, status int, seq iter.Seq2[T, error]) (started bool, err error) {
	for v, seqErr := range seq {
		if seqErr != nil {
			return started, seqErr
		}
		b, err := json.Marshal(v)
		if err != nil {
			return started, err
		}
		sep := ","
		if !started {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(status)
			started = true
			sep = "["
		}
		if _, err := io.WriteString(w, sep); err != nil {
			return started, err
		}
		if _, err := w.Write(b); err != nil {
			return started, err
		}
	}
	if !started {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		started = true
		if _, err := io.WriteString(w, "["); err != nil {
			return started, err
		}
	}
	_, err = io.WriteString(w, "]\n")
	return started, err
}
