package unit

import (
	"math/big"

	"rpnengine/number"
)

// Time units, standardized on seconds. Years uses the average Gregorian
// year length over a 400-year cycle.
var (
	Nanoseconds  = ratUnit(Time, "ns", 1, 1_000_000_000)
	Microseconds = ratUnit(Time, "us", 1, 1_000_000)
	Milliseconds = ratUnit(Time, "ms", 1, 1000)
	Seconds      = ratUnit(Time, "sec", 1, 1)
	Minutes      = ratUnit(Time, "min", 60, 1)
	Hours        = ratUnit(Time, "hr", 3600, 1)
	Days         = ratUnit(Time, "day", 3600*24, 1)
	Years        = ratUnit(Time, "yr", 31556952, 1)
)

// Distance units, standardized on meters.
var (
	Nanometers        = ratUnit(Distance, "nm", 1, 1_000_000_000)
	Micrometers       = ratUnit(Distance, "um", 1, 1_000_000)
	Millimeters       = ratUnit(Distance, "mm", 1, 1000)
	Centimeters       = ratUnit(Distance, "cm", 1, 100)
	Meters            = ratUnit(Distance, "m", 1, 1)
	Kilometers        = ratUnit(Distance, "km", 1000, 1)
	Inches            = ratUnit(Distance, "in", 127, 5000)
	Feet              = ratUnit(Distance, "ft", 381, 1250)
	Yards             = ratUnit(Distance, "yd", 1143, 1250)
	Miles             = ratUnit(Distance, "mi", 201168, 125)
	NauticalMiles     = ratUnit(Distance, "nmi", 1852, 1)
	AstronomicalUnits = ratUnit(Distance, "au", 149_597_870_700, 1)
)

// Angle units, standardized on radians. Not exact rationals (they carry a
// factor of pi), unlike every other category here, so they're built as
// affine units whose toStandard/fromStandard round through number.Pi()
// rather than through affineUnit's multiplier field.
var (
	Radians  = affineUnit(Angle, "rad", identity, identity)
	Degrees  = angleUnit("deg", 1, 180)
	Gradians = angleUnit("grad", 1, 200)
)

func angleUnit(symbol string, num, den int64) Unit {
	factor := number.FromRational(big.NewInt(num), big.NewInt(den))
	return affineUnit(Angle, symbol,
		func(v number.Number) number.Number { return v.Mul(factor).Mul(number.Pi()) },
		func(v number.Number) number.Number { return v.Div(factor).Div(number.Pi()) },
	)
}

// Mass units, standardized on kilograms.
var (
	Milligrams = ratUnit(Mass, "mg", 1, 1_000_000)
	Grams      = ratUnit(Mass, "g", 1, 1000)
	Kilograms  = ratUnit(Mass, "kg", 1, 1)
	MetricTons = ratUnit(Mass, "t", 1000, 1)
	Ounces     = ratUnit(Mass, "oz", 45359237, 1_600_000_000)
	Pounds     = ratUnit(Mass, "lb", 45359237, 100_000_000)
)

// Temperature units, standardized on kelvin. True affine conversions (not
// multiplicative); like the Angle units, their Multiplier() is nil.
var (
	Kelvin     = affineUnit(Temperature, "K", identity, identity)
	Celsius    = affineUnit(Temperature, "C", celsiusToKelvin, kelvinToCelsius)
	Fahrenheit = affineUnit(Temperature, "F", fahrenheitToKelvin, kelvinToFahrenheit)
)

func identity(v number.Number) number.Number { return v }

var celsiusOffset = number.FromRational(big.NewInt(27315), big.NewInt(100))

func celsiusToKelvin(v number.Number) number.Number { return v.Add(celsiusOffset) }
func kelvinToCelsius(v number.Number) number.Number { return v.Sub(celsiusOffset) }

func fahrenheitToKelvin(v number.Number) number.Number {
	five := number.FromInt64(5)
	nine := number.FromInt64(9)
	thirtyTwo := number.FromInt64(32)
	return v.Sub(thirtyTwo).Mul(five).Div(nine).Add(celsiusOffset)
}

func kelvinToFahrenheit(v number.Number) number.Number {
	five := number.FromInt64(5)
	nine := number.FromInt64(9)
	thirtyTwo := number.FromInt64(32)
	return v.Sub(celsiusOffset).Mul(nine).Div(five).Add(thirtyTwo)
}

// Volume units, standardized on liters.
var (
	Milliliters = ratUnit(Volume, "mL", 1, 1000)
	Liters      = ratUnit(Volume, "L", 1, 1)
	USGallons   = ratUnit(Volume, "gal", 473176473, 125000000)
	USQuarts    = ratUnit(Volume, "qt", 473176473, 500000000)
)

// Area units, standardized on square meters.
var (
	SquareMeters      = ratUnit(Area, "m2", 1, 1)
	SquareKilometers  = ratUnit(Area, "km2", 1_000_000, 1)
	Hectares          = ratUnit(Area, "ha", 10_000, 1)
	Acres             = ratUnit(Area, "acre", 40_468_564_224, 10_000_000)
	SquareFeet        = ratUnit(Area, "ft2", 145161, 1562500)
)

// Speed units, standardized on meters per second.
var (
	MetersPerSecond     = ratUnit(Speed, "m/s", 1, 1)
	KilometersPerHour   = ratUnit(Speed, "km/h", 1000, 3600)
	MilesPerHour        = ratUnit(Speed, "mph", 1609344, 3600000)
	Knots               = ratUnit(Speed, "kn", 1852, 3600)
)

// Pressure units, standardized on pascals.
var (
	Pascals    = ratUnit(Pressure, "Pa", 1, 1)
	Kilopascals = ratUnit(Pressure, "kPa", 1000, 1)
	Bar        = ratUnit(Pressure, "bar", 100_000, 1)
	Atmospheres = ratUnit(Pressure, "atm", 101325, 1)
	PSI        = ratUnit(Pressure, "psi", 6894757, 1000)
)

// Energy units, standardized on joules.
var (
	Joules        = ratUnit(Energy, "J", 1, 1)
	Kilojoules    = ratUnit(Energy, "kJ", 1000, 1)
	Calories      = ratUnit(Energy, "cal", 4184, 1000)
	Kilocalories  = ratUnit(Energy, "kcal", 4184, 1)
	WattHours     = ratUnit(Energy, "Wh", 3600, 1)
	KilowattHours = ratUnit(Energy, "kWh", 3_600_000, 1)
)

// Power units, standardized on watts.
var (
	Watts      = ratUnit(Power, "W", 1, 1)
	Kilowatts  = ratUnit(Power, "kW", 1000, 1)
	Horsepower = ratUnit(Power, "hp", 7457, 10)
)

// Digital units, standardized on bytes.
var (
	Bits      = ratUnit(Digital, "b", 1, 8)
	Bytes     = ratUnit(Digital, "B", 1, 1)
	Kilobytes = ratUnit(Digital, "KB", 1000, 1)
	Megabytes = ratUnit(Digital, "MB", 1_000_000, 1)
	Gigabytes = ratUnit(Digital, "GB", 1_000_000_000, 1)
	Kibibytes = ratUnit(Digital, "KiB", 1024, 1)
	Mebibytes = ratUnit(Digital, "MiB", 1024*1024, 1)
)
