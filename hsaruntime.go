package hsaruntime

// DevicePtr is a device-visible address returned by the native loader when
// host memory is locked for agent access. It is opaque to this library.
type DevicePtr uintptr

// KernelHandle identifies a kernel entry point inside a frozen executable.
// Handles stay valid for the lifetime of the executable that exposed them.
type KernelHandle uint64

// SectionName is the well-known ELF section under which the offload
// compiler embeds bundled device code in host binaries.
const SectionName = ".kernel"
