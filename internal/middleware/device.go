package middleware

import (
	"context"
	"net/http"
	"regexp"
	"strings"
	"time"

	"promptarchitect/internal/id"
)

const (
	DeviceHeader = "X-Device-ID"
	deviceCookie = "pa_device"
)

var deviceIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{8,64}$`)

type deviceKey struct{}

// DeviceID binds every request to a device. The id comes from the
// X-Device-ID header or the device cookie; new devices get a fresh id which
// is echoed back in both.
func DeviceID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		deviceID := strings.TrimSpace(r.Header.Get(DeviceHeader))
		if deviceID == "" {
			if c, err := r.Cookie(deviceCookie); err == nil {
				deviceID = c.Value
			}
		}
		if !deviceIDPattern.MatchString(deviceID) {
			generated, err := id.Generate("dev")
			if err != nil {
				http.Error(w, "device id unavailable", http.StatusInternalServerError)
				return
			}
			deviceID = generated
			http.SetCookie(w, &http.Cookie{
				Name:     deviceCookie,
				Value:    deviceID,
				Path:     "/",
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
				Expires:  time.Now().AddDate(1, 0, 0),
			})
		}
		w.Header().Set(DeviceHeader, deviceID)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), deviceKey{}, deviceID)))
	})
}

// DeviceIDFromContext returns the request's device id.
func DeviceIDFromContext(ctx context.Context) string {
	v, _ := ctx.Value(deviceKey{}).(string)
	return v
}

// ContextWithDeviceID binds deviceID to ctx.
func ContextWithDeviceID(ctx context.Context, deviceID string) context.Context {
	return context.WithValue(ctx, deviceKey{}, deviceID)
}
