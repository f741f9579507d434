//go:build linux

package sys

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Seccomp filter construction, modeled on the raw BPF builder pattern found
// in other_examples/e950660e_kornnellio-runc-Go__linux-seccomp.go.go: no
// cgo, no libseccomp — build a classic BPF program by hand and install it
// with prctl(PR_SET_SECCOMP, SECCOMP_MODE_FILTER, ...).

const (
	seccompModeFilter = 2

	// offsets into struct seccomp_data on x86_64.
	offsetNR   = 0
	offsetArch = 4

	auditArchX86_64 = 0xc000003e // AUDIT_ARCH_X86_64

	bpfLd  = 0x00
	bpfJmp = 0x05
	bpfRet = 0x06
	bpfW   = 0x00
	bpfAbs = 0x20
	bpfJeq = 0x10
	bpfK   = 0x00

	retKillProcess = 0x80000000
	retAllow       = 0x7fff0000
	retErrno       = 0x00050000
)

func bpfStmt32(code uint16, k uint32) unix.SockFilter {
	return unix.SockFilter{Code: code, Jt: 0, Jf: 0, K: k}
}

func bpfJump(code uint16, k uint32, jt, jf uint8) unix.SockFilter {
	return unix.SockFilter{Code: code, Jt: jt, Jf: jf, K: k}
}

// BuildFilter constructs the classic BPF program for a seccomp filter: a
// default action applied to every syscall except the named exceptions,
// which take the opposite action. Names not present in the known syscall
// table are rejected by Policy.Validate before this is ever called.
func BuildFilter(defaultAllow bool, exceptions []string) ([]unix.SockFilter, error) {
	defaultRet := uint32(retKillProcess)
	exceptionRet := uint32(retAllow)
	if defaultAllow {
		defaultRet = retAllow
		exceptionRet = retKillProcess
	}

	prog := make([]unix.SockFilter, 0, len(exceptions)+4)

	// Validate architecture; kill anything that isn't the expected ABI.
	prog = append(prog, bpfStmt32(bpfLd|bpfW|bpfAbs, offsetArch))
	prog = append(prog, bpfJump(bpfJmp|bpfJeq|bpfK, auditArchX86_64, 1, 0))
	prog = append(prog, bpfStmt32(bpfRet|bpfK, retKillProcess))

	// Load the syscall number once; each exception gets a comparison against it.
	prog = append(prog, bpfStmt32(bpfLd|bpfW|bpfAbs, offsetNR))

	for _, name := range exceptions {
		nr, ok := SyscallNumber(name)
		if !ok {
			return nil, fmt.Errorf("seccomp: unknown syscall %q", name)
		}

		// jt skips straight to the exception's RET, jf falls through to the next check.
		prog = append(prog, bpfJump(bpfJmp|bpfJeq|bpfK, uint32(nr), 0, 1))
		prog = append(prog, bpfStmt32(bpfRet|bpfK, exceptionRet))
	}

	prog = append(prog, bpfStmt32(bpfRet|bpfK, defaultRet))

	return prog, nil
}

// Install loads filter as the process's (and its descendants') seccomp
// filter. Callers must have already called SetNoNewPrivs; seccomp refuses
// unprivileged filter installation otherwise.
func Install(filter []unix.SockFilter) error {
	prog := unix.SockFprog{
		Len:    uint16(len(filter)),
		Filter: &filter[0],
	}

	_, _, errno := unix.Syscall(unix.SYS_PRCTL, unix.PR_SET_SECCOMP, seccompModeFilter, uintptr(unsafe.Pointer(&prog)))
	if errno != 0 {
		return fmt.Errorf("prctl(PR_SET_SECCOMP): %w", errno)
	}

	return nil
}

// syscallNumbers maps syscall names to their x86_64 syscall numbers. This is
// not exhaustive; it covers the syscalls a sandboxed process realistically
// issues plus the common deny-list targets security-conscious policies name.
var syscallNumbers = map[string]int{
	"read": 0, "write": 1, "open": 2, "close": 3, "stat": 4, "fstat": 5,
	"lstat": 6, "poll": 7, "lseek": 8, "mmap": 9, "mprotect": 10, "munmap": 11,
	"brk": 12, "rt_sigaction": 13, "rt_sigprocmask": 14, "rt_sigreturn": 15,
	"ioctl": 16, "pread64": 17, "pwrite64": 18, "readv": 19, "writev": 20,
	"access": 21, "pipe": 22, "select": 23, "sched_yield": 24, "mremap": 25,
	"msync": 26, "mincore": 27, "madvise": 28, "dup": 32, "dup2": 33,
	"pause": 34, "nanosleep": 35, "getitimer": 36, "alarm": 37, "setitimer": 38,
	"getpid": 39, "sendfile": 40, "socket": 41, "connect": 42, "accept": 43,
	"sendto": 44, "recvfrom": 45, "sendmsg": 46, "recvmsg": 47, "shutdown": 48,
	"bind": 49, "listen": 50, "getsockname": 51, "getpeername": 52,
	"socketpair": 53, "setsockopt": 54, "getsockopt": 55, "clone": 56,
	"fork": 57, "vfork": 58, "execve": 59, "exit": 60, "wait4": 61, "kill": 62,
	"uname": 63, "fcntl": 72, "flock": 73, "fsync": 74, "fdatasync": 75,
	"truncate": 76, "ftruncate": 77, "getdents": 78, "getcwd": 79, "chdir": 80,
	"fchdir": 81, "rename": 82, "mkdir": 83, "rmdir": 84, "creat": 85,
	"link": 86, "unlink": 87, "symlink": 88, "readlink": 89, "chmod": 90,
	"fchmod": 91, "chown": 92, "fchown": 93, "lchown": 94, "umask": 95,
	"gettimeofday": 96, "getrlimit": 97, "getrusage": 98, "sysinfo": 99,
	"times": 100, "ptrace": 101, "getuid": 102, "syslog": 103, "getgid": 104,
	"setuid": 105, "setgid": 106, "geteuid": 107, "getegid": 108,
	"setpgid": 109, "getppid": 110, "getpgrp": 111, "setsid": 112,
	"setreuid": 113, "setregid": 114, "getgroups": 115, "setgroups": 116,
	"setresuid": 117, "getresuid": 118, "setresgid": 119, "getresgid": 120,
	"getpgid": 121, "setfsuid": 122, "setfsgid": 123, "getsid": 124,
	"capget": 125, "capset": 126, "rt_sigpending": 127,
	"rt_sigtimedwait": 128, "rt_sigqueueinfo": 129, "rt_sigsuspend": 130,
	"sigaltstack": 131, "mknod": 133, "personality": 135, "statfs": 137,
	"fstatfs": 138, "getpriority": 140, "setpriority": 141,
	"sched_setparam": 142, "sched_getparam": 143, "sched_setscheduler": 144,
	"sched_getscheduler": 145, "mlock": 149, "munlock": 150,
	"mlockall": 151, "munlockall": 152, "vhangup": 153,
	"pivot_root": 155, "prctl": 157, "arch_prctl": 158, "adjtimex": 159,
	"setrlimit": 160, "chroot": 161, "sync": 162, "acct": 163,
	"settimeofday": 164, "mount": 165, "umount2": 166, "swapon": 167,
	"swapoff": 168, "reboot": 169, "sethostname": 170, "setdomainname": 171,
	"iopl": 172, "ioperm": 173, "init_module": 175, "delete_module": 176,
	"quotactl": 179, "gettid": 186, "readahead": 187, "setxattr": 188,
	"getxattr": 191, "listxattr": 194, "removexattr": 197, "tkill": 200,
	"time": 201, "futex": 202, "sched_setaffinity": 203,
	"sched_getaffinity": 204, "epoll_create": 213, "getdents64": 217,
	"set_tid_address": 218, "restart_syscall": 219, "semtimedop": 220,
	"fadvise64": 221, "timer_create": 222, "timer_settime": 223,
	"timer_gettime": 224, "timer_delete": 226, "clock_settime": 227,
	"clock_gettime": 228, "clock_getres": 229, "clock_nanosleep": 230,
	"exit_group": 231, "epoll_wait": 232, "epoll_ctl": 233, "tgkill": 234,
	"mbind": 237, "set_mempolicy": 238, "get_mempolicy": 239,
	"kexec_load": 246, "waitid": 247, "add_key": 248, "request_key": 249,
	"keyctl": 250, "ioprio_set": 251, "ioprio_get": 252,
	"inotify_init": 253, "inotify_add_watch": 254, "inotify_rm_watch": 255,
	"openat": 257, "mkdirat": 258, "mknodat": 259, "fchownat": 260,
	"futimesat": 261, "newfstatat": 262, "unlinkat": 263, "renameat": 264,
	"linkat": 265, "symlinkat": 266, "readlinkat": 267, "fchmodat": 268,
	"faccessat": 269, "pselect6": 270, "ppoll": 271, "unshare": 272,
	"set_robust_list": 273, "get_robust_list": 274, "splice": 275,
	"tee": 276, "sync_file_range": 277, "utimensat": 280,
	"epoll_pwait": 281, "signalfd": 282, "timerfd_create": 283,
	"eventfd": 284, "fallocate": 285, "timerfd_settime": 286,
	"timerfd_gettime": 287, "accept4": 288, "signalfd4": 289,
	"eventfd2": 290, "epoll_create1": 291, "dup3": 292, "pipe2": 293,
	"inotify_init1": 294, "preadv": 295, "pwritev": 296,
	"perf_event_open": 298, "recvmmsg": 299, "fanotify_init": 300,
	"fanotify_mark": 301, "prlimit64": 302, "name_to_handle_at": 303,
	"open_by_handle_at": 304, "clock_adjtime": 305, "syncfs": 306,
	"sendmmsg": 307, "setns": 308, "getcpu": 309, "process_vm_readv": 310,
	"process_vm_writev": 311, "kcmp": 312, "finit_module": 313,
	"sched_setattr": 314, "sched_getattr": 315, "renameat2": 316,
	"seccomp": 317, "getrandom": 318, "memfd_create": 319, "bpf": 321,
	"execveat": 322, "userfaultfd": 323, "membarrier": 324, "mlock2": 325,
	"copy_file_range": 326, "statx": 332, "rseq": 334,
}

// SyscallNumber returns the x86_64 syscall number for name.
func SyscallNumber(name string) (int, bool) {
	nr, ok := syscallNumbers[name]

	return nr, ok
}
