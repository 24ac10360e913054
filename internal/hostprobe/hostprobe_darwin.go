//go:build darwin && cgo

package hostprobe

/*
#include <stdlib.h>
#include <dlfcn.h>

int hostprobe_dlopen_check(const char *path) {
    if (path == NULL || path[0] == '\0') {
        return 0;
    }
    void *handle = dlopen(path, RTLD_LAZY | RTLD_NOLOAD | RTLD_LOCAL);
    if (handle == NULL) {
        // RTLD_NOLOAD only succeeds for images already resident; fall back
        // to a real (but immediately released) load attempt.
        handle = dlopen(path, RTLD_LAZY | RTLD_LOCAL);
    }
    if (handle == NULL) {
        return 0;
    }
    dlclose(handle);
    return 1;
}
*/
import "C"

import "unsafe"

func exists(path string) bool {
	if path == "" {
		return false
	}
	cpath := C.CString(path)
	defer C.free(unsafe.Pointer(cpath))
	return C.hostprobe_dlopen_check(cpath) != 0
}
