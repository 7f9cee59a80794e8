package engine

import "strings"

// splitPassword extracts the optional ":password" suffix from a
// host-facing path (spec §6 "path contains an optional suffix
// `:password`"). An absent suffix yields the empty passphrase, which is
// hashed in its place rather than treated specially (spec §4.6).
func splitPassword(raw string) (path, pass string) {
	idx := strings.LastIndex(raw, ":")
	if idx == -1 {
		return raw, ""
	}
	return raw[:idx], raw[idx+1:]
}

// splitDirName splits an absolute path into its parent directory and
// final path component.
func splitDirName(path string) (dirPath, name string) {
	path = strings.TrimSuffix(path, "/")
	if path == "" {
		return "/", ""
	}
	i := strings.LastIndex(path, "/")
	if i <= 0 {
		return "/", path[i+1:]
	}
	return path[:i], path[i+1:]
}

func joinPath(dirPath, name string) string {
	if dirPath == "/" || dirPath == "" {
		return "/" + name
	}
	return strings.TrimSuffix(dirPath, "/") + "/" + name
}
