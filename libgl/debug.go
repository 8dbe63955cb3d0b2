package libgl

import (
	"unsafe"

	"github.com/go-gl/gl/v4.5-core/gl"
	"github.com/hashicorp/go-hclog"
)

func setObjectLabel(namespace, id uint32, label string) {
	if label == "" {
		return
	}
	bytes := []byte(label)
	gl.ObjectLabel(namespace, id, int32(len(bytes)), (*uint8)(unsafe.Pointer(&bytes[0])))
}

// Pointer returns the address of the first element of a non empty slice, nil otherwise.
func Pointer[E any](data []E) unsafe.Pointer {
	if len(data) == 0 {
		return nil
	}
	return unsafe.Pointer(&data[0])
}

func pushGroup(name string) {
	gl.PushDebugGroup(gl.DEBUG_SOURCE_APPLICATION, 0, int32(len(name)), gl.Str(name+"\x00"))
}

func popGroup() {
	gl.PopDebugGroup()
}

// InstallDebugLogger forwards driver debug messages to logger. The context must have been
// created with the debug flag.
func InstallDebugLogger(logger hclog.Logger) {
	logger = logger.Named("gl")
	var groups []string

	gl.Enable(gl.DEBUG_OUTPUT)
	gl.Enable(gl.DEBUG_OUTPUT_SYNCHRONOUS)
	gl.DebugMessageCallback(func(source, gltype, id, severity uint32, length int32, message string, userParam unsafe.Pointer) {
		switch gltype {
		case gl.DEBUG_TYPE_PUSH_GROUP:
			groups = append(groups, message)
			return
		case gl.DEBUG_TYPE_POP_GROUP:
			if len(groups) > 0 {
				groups = groups[:len(groups)-1]
			}
			return
		}

		args := []any{"id", id, "type", debugTypeName(gltype)}
		if len(groups) > 0 {
			args = append(args, "group", groups[len(groups)-1])
		}
		switch severity {
		case gl.DEBUG_SEVERITY_HIGH, gl.DEBUG_SEVERITY_MEDIUM:
			logger.Error(message, args...)
		case gl.DEBUG_SEVERITY_LOW:
			logger.Warn(message, args...)
		default:
			logger.Trace(message, args...)
		}
	}, nil)
}

func debugTypeName(gltype uint32) string {
	switch gltype {
	case gl.DEBUG_TYPE_ERROR:
		return "error"
	case gl.DEBUG_TYPE_DEPRECATED_BEHAVIOR:
		return "deprecated"
	case gl.DEBUG_TYPE_UNDEFINED_BEHAVIOR:
		return "undefined"
	case gl.DEBUG_TYPE_PORTABILITY:
		return "portability"
	case gl.DEBUG_TYPE_PERFORMANCE:
		return "performance"
	case gl.DEBUG_TYPE_MARKER:
		return "marker"
	}
	return "other"
}
