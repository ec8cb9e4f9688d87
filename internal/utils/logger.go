package utils

import (
	"log"
	"strings"
)

// LogEvent prints one audit line per engine or handler event. The spawn
// pipeline emits these for every created mission and every skipped group,
// so the format stays grep-able: module upper-cased, request id "-" when
// the event fired outside a request (startup, shutdown).
func LogEvent(requestID, module, action, message string) {
	req := strings.TrimSpace(requestID)
	if req == "" {
		req = "-"
	}
	log.Printf("[%s] action=%s request_id=%s msg=%s", strings.ToUpper(module), action, req, message)
}
