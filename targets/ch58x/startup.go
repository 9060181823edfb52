//go:build tinygo && ch58x

package main

import "device/riscv"

// QingKe V4 machine CSRs.
const (
	intsyscrHWSTKEN = 1 << 0 // hardware context push on interrupt entry
	intsyscrINESTEN = 1 << 1 // interrupt nesting

	corecfgrPipeline = 0x1F // pipeline control and dynamic branch prediction
)

// postInit finishes core setup the reset code leaves to the application.
// Nesting has to be on before the SysTick priority means anything.
func postInit() {
	riscv.AsmFull("csrw 0xBC0, {value}", map[string]interface{}{
		"value": corecfgrPipeline,
	})
	riscv.AsmFull("csrw 0x804, {value}", map[string]interface{}{
		"value": intsyscrHWSTKEN | intsyscrINESTEN,
	})
}
