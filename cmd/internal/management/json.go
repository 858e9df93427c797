package management

import (
	"net/http"

	"methodius/cmd/internal/httpjson"
)

// Successful management responses carry their payload under "data".
type dataResponse struct {
	Data any `json:"data"`
}

func writeData(w http.ResponseWriter, status int, v any) {
	httpjson.Write(w, status, dataResponse{Data: v})
}
