package main

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"

	"github.com/bamsammich/rdd/internal/config"
)

// operandFlags maps dd operands onto the flag they set.
var operandFlags = map[string]string{
	"if":    "if",
	"of":    "of",
	"bs":    "bs",
	"skip":  "skip",
	"iseek": "skip",
	"seek":  "seek",
	"oseek": "seek",
	"count": "count",
	"conv":  "conv",
}

// applyOperands applies dd-style key=value arguments through the flag set,
// so they count as explicitly set and win over config defaults. Operands
// that repeat a flag given as --flag override it, as the last one wins.
func applyOperands(flags *pflag.FlagSet, args []string) error {
	var ibs, obs string
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		if !ok || key == "" {
			return fmt.Errorf("unexpected argument %q (operands take the form key=value)", arg)
		}
		switch key = strings.ToLower(key); key {
		case "ibs":
			ibs = value
		case "obs":
			obs = value
		default:
			if err := applyOperand(flags, key, value); err != nil {
				return fmt.Errorf("operand %s: %w", arg, err)
			}
		}
	}
	return applySplitBlockSize(flags, ibs, obs)
}

// applySplitBlockSize folds ibs= and obs= into the single block size. As in
// dd, an explicit bs wins over both. Reads and writes share one size here,
// so differing ibs and obs are refused rather than reblocked.
func applySplitBlockSize(flags *pflag.FlagSet, ibs, obs string) error {
	if ibs == "" && obs == "" {
		return nil
	}
	if f := flags.Lookup("bs"); f != nil && f.Changed {
		return nil
	}
	if ibs != "" && obs != "" {
		in, err := config.ParseSize(ibs)
		if err != nil {
			return fmt.Errorf("operand ibs=%s: %w", ibs, err)
		}
		out, err := config.ParseSize(obs)
		if err != nil {
			return fmt.Errorf("operand obs=%s: %w", obs, err)
		}
		if in != out {
			return fmt.Errorf("ibs=%s and obs=%s differ: reads and writes use one block size, set bs= instead", ibs, obs)
		}
	}
	size := ibs
	if size == "" {
		size = obs
	}
	return flags.Set("bs", size)
}

func applyOperand(flags *pflag.FlagSet, key, value string) error {
	if name, ok := operandFlags[key]; ok {
		return flags.Set(name, value)
	}

	switch key {
	case "iflag", "oflag":
		for _, fl := range strings.Split(value, ",") {
			switch strings.TrimSpace(fl) {
			case "direct":
				if err := flags.Set("direct", "true"); err != nil {
					return err
				}
			case "fullblock", "":
				// reads always fill the block
			default:
				return fmt.Errorf("unsupported flag %q", fl)
			}
		}
		return nil
	case "status":
		switch value {
		case "none":
			return flags.Set("quiet", "true")
		case "progress":
			return flags.Set("progress", "true")
		case "noxfer":
			return flags.Set("noxfer", "true")
		default:
			return fmt.Errorf("unknown status level %q", value)
		}
	default:
		return fmt.Errorf("unknown operand %q", key)
	}
}
