package customers

// unionStrings объединяет списки без повторов, сохраняя порядок первого появления
func unionStrings(lists ...[]string) []string {
	size := 0
	for _, l := range lists {
		size += len(l)
	}

	seen := make(map[string]struct{}, size)
	out := make([]string, 0, size)
	for _, l := range lists {
		for _, s := range l {
			if _, ok := seen[s]; ok {
				continue
			}
			seen[s] = struct{}{}
			out = append(out, s)
		}
	}
	return out
}

// intersectionSize считает общие элементы двух множеств
func intersectionSize(a, b []string) int {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	if len(a) > len(b) {
		a, b = b, a
	}

	set := make(map[string]struct{}, len(b))
	for _, s := range b {
		set[s] = struct{}{}
	}

	n := 0
	counted := make(map[string]struct{}, len(a))
	for _, s := range a {
		if _, ok := set[s]; !ok {
			continue
		}
		if _, dup := counted[s]; dup {
			continue
		}
		counted[s] = struct{}{}
		n++
	}
	return n
}

// appendUnique добавляет строку, если ее еще нет в списке
func appendUnique(list []string, s string) []string {
	if containsString(list, s) {
		return list
	}
	return append(list, s)
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func firstDuplicate(list []string) (string, bool) {
	seen := make(map[string]struct{}, len(list))
	for _, s := range list {
		if _, ok := seen[s]; ok {
			return s, true
		}
		seen[s] = struct{}{}
	}
	return "", false
}

func cloneStrings(list []string) []string {
	if list == nil {
		return nil
	}
	out := make([]string, len(list))
	copy(out, list)
	return out
}
