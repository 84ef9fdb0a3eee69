// Package auth authenticates e-reader devices against a shared secret and
// resolves each request to a registered device record.
package auth

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/shelfgate/shelfgate/internal/config"
	"github.com/shelfgate/shelfgate/internal/entities"
)

// Context keys for device data
const (
	ContextKeyDeviceID          = "auth_device_id"
	ContextKeyDeviceFingerprint = "auth_device_fingerprint"
)

// Request headers devices present on every call.
const (
	HeaderDeviceSecret      = "X-Device-Secret"
	HeaderDeviceFingerprint = "X-Device-Fingerprint"
)

// DefaultDeviceID is used when device authentication is disabled.
const DefaultDeviceID = uint(0)

// DeviceStore resolves a device fingerprint to a registered device,
// creating the record on first contact.
type DeviceStore interface {
	GetOrRegister(fingerprint string) (*entities.Device, error)
}

// Middleware handles device authentication for HTTP requests.
type Middleware struct {
	devices DeviceStore
	config  config.Auth
}

// NewMiddleware creates a new device authentication middleware.
func NewMiddleware(devices DeviceStore, cfg config.Auth) *Middleware {
	return &Middleware{devices: devices, config: cfg}
}

// Handler returns a Gin middleware handler that authenticates devices.
// With no secret configured, all requests pass through as the default
// device; fingerprints are still resolved so progress stays per-device.
func (m *Middleware) Handler() gin.HandlerFunc {
	if m.config.DeviceSecret == "" {
		return m.noAuthHandler()
	}
	return m.authHandler()
}

func (m *Middleware) noAuthHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !m.resolveDevice(c) {
			return
		}
		c.Next()
	}
}

func (m *Middleware) authHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		secret := c.GetHeader(HeaderDeviceSecret)
		if subtle.ConstantTimeCompare([]byte(secret), []byte(m.config.DeviceSecret)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "authentication required",
			})
			return
		}

		if !m.resolveDevice(c) {
			return
		}
		c.Next()
	}
}

// resolveDevice registers or looks up the device named by the fingerprint
// header and stores it in the Gin context. A missing fingerprint maps to
// the default device rather than an error: progress for such clients is
// shared, everything else works.
func (m *Middleware) resolveDevice(c *gin.Context) bool {
	fingerprint := c.GetHeader(HeaderDeviceFingerprint)
	if fingerprint == "" {
		c.Set(ContextKeyDeviceID, DefaultDeviceID)
		return true
	}

	device, err := m.devices.GetOrRegister(fingerprint)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error": "internal server error",
		})
		return false
	}

	c.Set(ContextKeyDeviceID, device.ID)
	c.Set(ContextKeyDeviceFingerprint, device.Fingerprint)
	return true
}

// GetDeviceID retrieves the authenticated device's ID from the context.
// Returns DefaultDeviceID (0) when no fingerprint was presented.
func GetDeviceID(c *gin.Context) uint {
	if id, exists := c.Get(ContextKeyDeviceID); exists {
		if deviceID, ok := id.(uint); ok {
			return deviceID
		}
	}
	return DefaultDeviceID
}

// GetDeviceFingerprint retrieves the device fingerprint from the context.
func GetDeviceFingerprint(c *gin.Context) string {
	if f, exists := c.Get(ContextKeyDeviceFingerprint); exists {
		if fingerprint, ok := f.(string); ok {
			return fingerprint
		}
	}
	return ""
}
