package sruntime

// Dataset columns hold many repeated category strings; backing them with
// one shared copy bounds memory. The interpreter is single-threaded, so
// a plain map suffices.
var internTable = make(map[string]string)

func Intern(s string) string {
	if s == "" {
		return ""
	}
	if v, ok := internTable[s]; ok {
		return v
	}
	internTable[s] = s
	return s
}
