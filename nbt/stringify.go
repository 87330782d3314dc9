package nbt

import (
	"fmt"
	"strconv"
	"strings"
)

// Stringify renders t as indented text in roughly the format of NBT viewers:
//
//	TAG_Compound("Level"): 2 entries
//	{
//	  TAG_Int("x"): 3
//	  ...
//	}
func Stringify(name string, t Tag) string {
	var sb strings.Builder
	stringify(&sb, name, t, 0)
	return sb.String()
}

func stringify(sb *strings.Builder, name string, t Tag, depth int) {
	indent := strings.Repeat("  ", depth)
	sb.WriteString(indent)
	sb.WriteString(TagName(t.ID()))
	if name != "" {
		sb.WriteString("(" + strconv.Quote(name) + ")")
	}
	sb.WriteString(": ")

	switch v := t.(type) {
	case End:
		sb.WriteString("end\n")
	case Byte, Short, Int, Long:
		fmt.Fprintf(sb, "%d\n", v)
	case Float, Double:
		fmt.Fprintf(sb, "%g\n", v)
	case String:
		sb.WriteString(strconv.Quote(string(v)) + "\n")
	case ByteArray:
		fmt.Fprintf(sb, "[%d bytes]\n", len(v))
	case IntArray:
		fmt.Fprintf(sb, "%v\n", []int32(v))
	case LongArray:
		fmt.Fprintf(sb, "%v\n", []int64(v))
	case List:
		fmt.Fprintf(sb, "%d entries of %s\n%s{\n", len(v.Values), TagName(v.Elem), indent)
		for _, e := range v.Values {
			stringify(sb, "", e, depth+1)
		}
		sb.WriteString(indent + "}\n")
	case *Compound:
		fmt.Fprintf(sb, "%d entries\n%s{\n", v.Len(), indent)
		for _, k := range v.keys {
			stringify(sb, k, v.values[k], depth+1)
		}
		sb.WriteString(indent + "}\n")
	}
}
