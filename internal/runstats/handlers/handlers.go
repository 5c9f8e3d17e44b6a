package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
)

// maxPageSize caps the list endpoints.
const maxPageSize = 500

func intVar(r *http.Request, name string) (int, error) {
	value := mux.Vars(r)[name]
	if value == "" {
		return 0, fmt.Errorf("%s empty", name)
	}
	v, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s NaN", name)
	}
	return v, nil
}

func isJSON(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "application/json")
}
