package handlers

import (
	"log"
	"net/http"
)

// respondWithError writes the API's JSON error envelope and logs the
// underlying cause when one is present. userMsg is what the client
// sees; logMsg, falling back to userMsg, is what the log records.
func respondWithError(w http.ResponseWriter, status int, userMsg, logMsg string, err error) {
	if err != nil {
		if logMsg == "" {
			logMsg = userMsg
		}
		log.Printf("%s: %v", logMsg, err)
	}

	respondWithJSON(w, status, map[string]string{"error": userMsg})
}
