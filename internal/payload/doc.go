// Package payload builds the normalized request body sent for a notification.
package payload
