package chain

import (
	"github.com/davecgh/go-spew/spew"
	"github.com/fatih/color"
)

var (
	Green  = color.New(color.FgHiGreen)
	Yellow = color.New(color.FgHiYellow)
	Red    = color.New(color.FgRed)
)

func CLog(c *color.Color, str string) string {
	return c.Sprint(str)
}

var spewConfig = spew.ConfigState{
	DisableMethods:          true,
	Indent:                  "  ",
	DisablePointerAddresses: true,
}
