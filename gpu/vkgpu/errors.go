package vkgpu

import (
	"fmt"

	vk "github.com/goki/vulkan"
)

// NewError returns nil for vk.Success and a descriptive error otherwise.
func NewError(op string, ret vk.Result) error {
	if ret == vk.Success {
		return nil
	}
	return fmt.Errorf("vulkan: %s: %w (%d)", op, vk.Error(ret), ret)
}

// IsError reports whether ret is not vk.Success.
func IsError(ret vk.Result) bool {
	return ret != vk.Success
}
