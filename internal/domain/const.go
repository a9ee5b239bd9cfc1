package domain

const (
	// Blockchain constants
	ETHEREUM_ZERO_ADDRESS = "0x0000000000000000000000000000000000000000"

	// TOKEN_DECIMALS is the fixed-point precision of fractional tokens and revenue amounts
	TOKEN_DECIMALS = 18

	// BASIS_POINTS_SCALE is the integer scale used for holder percentages (100.00% == 10000)
	BASIS_POINTS_SCALE = 10000
)
