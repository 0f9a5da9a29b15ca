package decoder

import (
	"errors"
	"fmt"
	"math"

	"github.com/qrscan/qrdecode/bitutil"
	"github.com/qrscan/qrdecode/reedsolomon"
)

// This file builds valid QR symbol matrices for the tests in this package
// to decode. It is not part of the decoder's public surface; it exists
// purely as a test fixture generator, the same role encoder.Encode plays
// in qrcode_test.go's round-trip tests.

var errFixtureTooLarge = errors.New("decoder: content too large for any version")

const numMaskPatterns = 8

type byteMatrix struct {
	data          [][]byte
	width, height int
}

func newByteMatrix(width, height int) *byteMatrix {
	data := make([][]byte, height)
	for i := range data {
		data[i] = make([]byte, width)
	}
	return &byteMatrix{data: data, width: width, height: height}
}

func (m *byteMatrix) get(x, y int) byte      { return m.data[y][x] }
func (m *byteMatrix) set(x, y int, v byte)   { m.data[y][x] = v }
func (m *byteMatrix) clear(v byte) {
	for y := range m.data {
		for x := range m.data[y] {
			m.data[y][x] = v
		}
	}
}

var alphanumericTable = [128]int{
	-1, -1, -1, -1, -1, -1, -1, -1, -1, -1, -1, -1, -1, -1, -1, -1,
	-1, -1, -1, -1, -1, -1, -1, -1, -1, -1, -1, -1, -1, -1, -1, -1,
	36, -1, -1, -1, 37, 38, -1, -1, -1, -1, 39, 40, -1, 41, 42, 43,
	0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 44, -1, -1, -1, -1, -1,
	-1, 10, 11, 12, 13, 14, 15, 16, 17, 18, 19, 20, 21, 22, 23, 24,
	25, 26, 27, 28, 29, 30, 31, 32, 33, 34, 35, -1, -1, -1, -1, -1,
	-1, -1, -1, -1, -1, -1, -1, -1, -1, -1, -1, -1, -1, -1, -1, -1,
	-1, -1, -1, -1, -1, -1, -1, -1, -1, -1, -1, -1, -1, -1, -1, -1,
}

func alphanumericCode(c int) int {
	if c < 128 {
		return alphanumericTable[c]
	}
	return -1
}

func chooseEncodingMode(content string) Mode {
	hasNumeric := false
	hasAlphanumeric := false
	for _, c := range content {
		switch {
		case c >= '0' && c <= '9':
			hasNumeric = true
		case alphanumericCode(int(c)) != -1:
			hasAlphanumeric = true
		default:
			return ModeByte
		}
	}
	if hasAlphanumeric {
		return ModeAlphanumeric
	}
	if hasNumeric {
		return ModeNumeric
	}
	return ModeByte
}

// encodeFixture builds a BitMatrix carrying content encoded at ecLevel. If
// maskPattern is negative the best-penalty mask is chosen automatically.
func encodeFixture(content string, ecLevel ErrorCorrectionLevel, maskPattern int) (*bitutil.BitMatrix, error) {
	mode := chooseEncodingMode(content)

	headerBits := bitutil.NewBitArray(0)
	headerBits.AppendBits(uint32(mode.Bits()), 4)

	dataBits := bitutil.NewBitArray(0)
	if err := appendFixtureBytes(content, mode, dataBits); err != nil {
		return nil, err
	}

	version, err := chooseFixtureVersion(mode, headerBits, dataBits, ecLevel)
	if err != nil {
		return nil, err
	}

	headerBits.AppendBits(uint32(len(content)), mode.CharacterCountBits(version))
	headerBits.AppendBitArray(dataBits)

	ecBlocks := version.ECBlocksForLevel(ecLevel)
	totalBytes := version.TotalCodewords
	numDataBytes := totalBytes - ecBlocks.TotalECCodewords()

	if err := terminateFixtureBits(numDataBytes, headerBits); err != nil {
		return nil, err
	}

	finalBits, err := interleaveFixtureECBytes(headerBits, totalBytes, numDataBytes, ecBlocks.NumBlocks())
	if err != nil {
		return nil, err
	}

	dimension := version.DimensionForVersion()
	matrix := newByteMatrix(dimension, dimension)

	chosenMask := maskPattern
	if chosenMask < 0 || chosenMask >= numMaskPatterns {
		chosenMask = chooseFixtureMaskPattern(finalBits, ecLevel, version, matrix)
	}
	buildFixtureMatrix(finalBits, ecLevel, version, chosenMask, matrix)

	bm := bitutil.NewBitMatrixWithSize(dimension, dimension)
	for y := 0; y < dimension; y++ {
		for x := 0; x < dimension; x++ {
			if matrix.get(x, y) == 1 {
				bm.Set(x, y)
			}
		}
	}
	return bm, nil
}

func chooseFixtureVersion(mode Mode, headerBits, dataBits *bitutil.BitArray, ecLevel ErrorCorrectionLevel) (*Version, error) {
	for versionNum := 1; versionNum <= 40; versionNum++ {
		version, _ := GetVersionForNumber(versionNum)
		totalBits := headerBits.Size() + mode.CharacterCountBits(version) + dataBits.Size()
		ecBlocks := version.ECBlocksForLevel(ecLevel)
		numDataBytes := version.TotalCodewords - ecBlocks.TotalECCodewords()
		if totalBits <= numDataBytes*8 {
			return version, nil
		}
	}
	return nil, errFixtureTooLarge
}

func terminateFixtureBits(numDataBytes int, bits *bitutil.BitArray) error {
	capacity := numDataBytes * 8
	if bits.Size() > capacity {
		return fmt.Errorf("decoder: data bits exceed capacity of chosen version")
	}
	for i := 0; i < 4 && bits.Size() < capacity; i++ {
		bits.AppendBit(false)
	}
	if rem := bits.Size() & 0x07; rem > 0 {
		for i := rem; i < 8; i++ {
			bits.AppendBit(false)
		}
	}
	numPaddingBytes := numDataBytes - bits.SizeInBytes()
	for i := 0; i < numPaddingBytes; i++ {
		if i%2 == 0 {
			bits.AppendBits(0xEC, 8)
		} else {
			bits.AppendBits(0x11, 8)
		}
	}
	return nil
}

func appendFixtureBytes(content string, mode Mode, bits *bitutil.BitArray) error {
	switch mode {
	case ModeNumeric:
		return appendFixtureNumericBytes(content, bits)
	case ModeAlphanumeric:
		return appendFixtureAlphanumericBytes(content, bits)
	case ModeByte:
		for i := 0; i < len(content); i++ {
			bits.AppendBits(uint32(content[i]), 8)
		}
		return nil
	default:
		return fmt.Errorf("decoder: unsupported fixture mode %v", mode)
	}
}

func appendFixtureNumericBytes(content string, bits *bitutil.BitArray) error {
	length := len(content)
	i := 0
	for i < length {
		num1 := int(content[i] - '0')
		switch {
		case i+2 < length:
			num2 := int(content[i+1] - '0')
			num3 := int(content[i+2] - '0')
			bits.AppendBits(uint32(num1*100+num2*10+num3), 10)
			i += 3
		case i+1 < length:
			num2 := int(content[i+1] - '0')
			bits.AppendBits(uint32(num1*10+num2), 7)
			i += 2
		default:
			bits.AppendBits(uint32(num1), 4)
			i++
		}
	}
	return nil
}

func appendFixtureAlphanumericBytes(content string, bits *bitutil.BitArray) error {
	length := len(content)
	i := 0
	for i < length {
		code1 := alphanumericCode(int(content[i]))
		if code1 == -1 {
			return fmt.Errorf("decoder: invalid alphanumeric character %q", content[i])
		}
		if i+1 < length {
			code2 := alphanumericCode(int(content[i+1]))
			if code2 == -1 {
				return fmt.Errorf("decoder: invalid alphanumeric character %q", content[i+1])
			}
			bits.AppendBits(uint32(code1*45+code2), 11)
			i += 2
		} else {
			bits.AppendBits(uint32(code1), 6)
			i++
		}
	}
	return nil
}

func interleaveFixtureECBytes(bits *bitutil.BitArray, numTotalBytes, numDataBytes, numRSBlocks int) (*bitutil.BitArray, error) {
	if bits.SizeInBytes() != numDataBytes {
		return nil, fmt.Errorf("decoder: data byte count mismatch building fixture")
	}

	type blockPair struct {
		dataBytes []byte
		ecBytes   []byte
	}
	blocks := make([]blockPair, numRSBlocks)

	dataBytesOffset := 0
	maxNumDataBytes := 0
	maxNumEcBytes := 0
	for i := 0; i < numRSBlocks; i++ {
		numDataBytesInBlock, numEcBytesInBlock := fixtureBlockSizes(numTotalBytes, numDataBytes, numRSBlocks, i)
		dataBytes := make([]byte, numDataBytesInBlock)
		bits.ToBytes(8*dataBytesOffset, dataBytes, 0, numDataBytesInBlock)
		ecBytes := fixtureECBytes(dataBytes, numEcBytesInBlock)
		blocks[i] = blockPair{dataBytes: dataBytes, ecBytes: ecBytes}
		if numDataBytesInBlock > maxNumDataBytes {
			maxNumDataBytes = numDataBytesInBlock
		}
		if numEcBytesInBlock > maxNumEcBytes {
			maxNumEcBytes = numEcBytesInBlock
		}
		dataBytesOffset += numDataBytesInBlock
	}

	result := bitutil.NewBitArray(0)
	for i := 0; i < maxNumDataBytes; i++ {
		for _, block := range blocks {
			if i < len(block.dataBytes) {
				result.AppendBits(uint32(block.dataBytes[i]), 8)
			}
		}
	}
	for i := 0; i < maxNumEcBytes; i++ {
		for _, block := range blocks {
			if i < len(block.ecBytes) {
				result.AppendBits(uint32(block.ecBytes[i]), 8)
			}
		}
	}

	if result.SizeInBytes() != numTotalBytes {
		return nil, fmt.Errorf("decoder: interleaved fixture size mismatch")
	}
	return result, nil
}

func fixtureBlockSizes(numTotalBytes, numDataBytes, numRSBlocks, blockID int) (int, int) {
	numRsBlocksInGroup2 := numTotalBytes % numRSBlocks
	numRsBlocksInGroup1 := numRSBlocks - numRsBlocksInGroup2
	numTotalBytesInGroup1 := numTotalBytes / numRSBlocks
	numTotalBytesInGroup2 := numTotalBytesInGroup1 + 1
	numDataBytesInGroup1 := numDataBytes / numRSBlocks
	numDataBytesInGroup2 := numDataBytesInGroup1 + 1
	numEcBytesInGroup1 := numTotalBytesInGroup1 - numDataBytesInGroup1
	numEcBytesInGroup2 := numTotalBytesInGroup2 - numDataBytesInGroup2

	if blockID < numRsBlocksInGroup1 {
		return numDataBytesInGroup1, numEcBytesInGroup1
	}
	return numDataBytesInGroup2, numEcBytesInGroup2
}

func fixtureECBytes(dataBytes []byte, numEcBytesInBlock int) []byte {
	toEncode := make([]int, len(dataBytes)+numEcBytesInBlock)
	for i, b := range dataBytes {
		toEncode[i] = int(b) & 0xFF
	}
	enc := reedsolomon.NewEncoder(reedsolomon.QRCodeField256)
	enc.Encode(toEncode, numEcBytesInBlock)
	ecBytes := make([]byte, numEcBytesInBlock)
	for i := 0; i < numEcBytesInBlock; i++ {
		ecBytes[i] = byte(toEncode[len(dataBytes)+i])
	}
	return ecBytes
}

func chooseFixtureMaskPattern(bits *bitutil.BitArray, ecLevel ErrorCorrectionLevel, version *Version, matrix *byteMatrix) int {
	minPenalty := math.MaxInt32
	best := 0
	for i := 0; i < numMaskPatterns; i++ {
		buildFixtureMatrix(bits, ecLevel, version, i, matrix)
		penalty := fixtureMaskPenalty(matrix)
		if penalty < minPenalty {
			minPenalty = penalty
			best = i
		}
	}
	return best
}

func fixtureMaskPenalty(matrix *byteMatrix) int {
	return fixturePenaltyRule1(matrix) + fixturePenaltyRule2(matrix) +
		fixturePenaltyRule3(matrix) + fixturePenaltyRule4(matrix)
}

func fixturePenaltyRule1(matrix *byteMatrix) int {
	return fixturePenaltyRule1Dir(matrix, true) + fixturePenaltyRule1Dir(matrix, false)
}

func fixturePenaltyRule1Dir(matrix *byteMatrix, horizontal bool) int {
	penalty := 0
	iLimit, jLimit := matrix.height, matrix.width
	if !horizontal {
		iLimit, jLimit = matrix.width, matrix.height
	}
	for i := 0; i < iLimit; i++ {
		same := 0
		prev := byte(255)
		for j := 0; j < jLimit; j++ {
			var bit byte
			if horizontal {
				bit = matrix.get(j, i)
			} else {
				bit = matrix.get(i, j)
			}
			if bit == prev {
				same++
			} else {
				if same >= 5 {
					penalty += 3 + (same - 5)
				}
				same = 1
				prev = bit
			}
		}
		if same >= 5 {
			penalty += 3 + (same - 5)
		}
	}
	return penalty
}

func fixturePenaltyRule2(matrix *byteMatrix) int {
	penalty := 0
	for y := 0; y < matrix.height-1; y++ {
		for x := 0; x < matrix.width-1; x++ {
			v := matrix.get(x, y)
			if v == matrix.get(x+1, y) && v == matrix.get(x, y+1) && v == matrix.get(x+1, y+1) {
				penalty += 3
			}
		}
	}
	return penalty
}

func fixturePenaltyRule3(matrix *byteMatrix) int {
	penalty := 0
	for y := 0; y < matrix.height; y++ {
		for x := 0; x < matrix.width; x++ {
			if x+6 < matrix.width &&
				matrix.get(x, y) == 1 && matrix.get(x+1, y) == 0 && matrix.get(x+2, y) == 1 &&
				matrix.get(x+3, y) == 1 && matrix.get(x+4, y) == 1 && matrix.get(x+5, y) == 0 && matrix.get(x+6, y) == 1 {
				leading := x+10 < matrix.width && matrix.get(x+7, y) == 0 && matrix.get(x+8, y) == 0 &&
					matrix.get(x+9, y) == 0 && matrix.get(x+10, y) == 0
				trailing := x >= 4 && matrix.get(x-1, y) == 0 && matrix.get(x-2, y) == 0 &&
					matrix.get(x-3, y) == 0 && matrix.get(x-4, y) == 0
				if leading || trailing {
					penalty += 40
				}
			}
			if y+6 < matrix.height &&
				matrix.get(x, y) == 1 && matrix.get(x, y+1) == 0 && matrix.get(x, y+2) == 1 &&
				matrix.get(x, y+3) == 1 && matrix.get(x, y+4) == 1 && matrix.get(x, y+5) == 0 && matrix.get(x, y+6) == 1 {
				leading := y+10 < matrix.height && matrix.get(x, y+7) == 0 && matrix.get(x, y+8) == 0 &&
					matrix.get(x, y+9) == 0 && matrix.get(x, y+10) == 0
				trailing := y >= 4 && matrix.get(x, y-1) == 0 && matrix.get(x, y-2) == 0 &&
					matrix.get(x, y-3) == 0 && matrix.get(x, y-4) == 0
				if leading || trailing {
					penalty += 40
				}
			}
		}
	}
	return penalty
}

func fixturePenaltyRule4(matrix *byteMatrix) int {
	dark := 0
	total := matrix.height * matrix.width
	for y := 0; y < matrix.height; y++ {
		for x := 0; x < matrix.width; x++ {
			if matrix.get(x, y) == 1 {
				dark++
			}
		}
	}
	variance := fixtureAbs(dark*2-total) * 10 / total
	return variance * 10
}

func fixtureAbs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

var fixturePositionDetectionPattern = [7][7]byte{
	{1, 1, 1, 1, 1, 1, 1},
	{1, 0, 0, 0, 0, 0, 1},
	{1, 0, 1, 1, 1, 0, 1},
	{1, 0, 1, 1, 1, 0, 1},
	{1, 0, 1, 1, 1, 0, 1},
	{1, 0, 0, 0, 0, 0, 1},
	{1, 1, 1, 1, 1, 1, 1},
}

var fixturePositionAdjustmentPattern = [5][5]byte{
	{1, 1, 1, 1, 1},
	{1, 0, 0, 0, 1},
	{1, 0, 1, 0, 1},
	{1, 0, 0, 0, 1},
	{1, 1, 1, 1, 1},
}

func buildFixtureMatrix(dataBits *bitutil.BitArray, ecLevel ErrorCorrectionLevel, version *Version, maskPattern int, matrix *byteMatrix) {
	matrix.clear(0xFF)
	embedFixtureBasicPatterns(version, matrix)
	embedFixtureTypeInfo(ecLevel, maskPattern, matrix)
	maybeEmbedFixtureVersionInfo(version, matrix)
	embedFixtureDataBits(dataBits, maskPattern, matrix)
}

func embedFixtureBasicPatterns(version *Version, matrix *byteMatrix) {
	embedFixtureFinder(0, 0, matrix)
	embedFixtureFinder(matrix.width-7, 0, matrix)
	embedFixtureFinder(0, matrix.height-7, matrix)

	embedFixtureHSep(0, 7, matrix)
	embedFixtureHSep(matrix.width-8, 7, matrix)
	embedFixtureHSep(0, matrix.height-8, matrix)

	embedFixtureVSep(7, 0, matrix)
	embedFixtureVSep(matrix.width-8, 0, matrix)
	embedFixtureVSep(7, matrix.height-7, matrix)

	if version.Number >= 2 {
		embedFixtureAlignmentPatterns(version, matrix)
	}

	embedFixtureTimingPatterns(matrix)
	matrix.set(8, matrix.height-8, 1)
}

func embedFixtureFinder(xStart, yStart int, matrix *byteMatrix) {
	for y := 0; y < 7; y++ {
		for x := 0; x < 7; x++ {
			matrix.set(xStart+x, yStart+y, fixturePositionDetectionPattern[y][x])
		}
	}
}

func embedFixtureHSep(xStart, yStart int, matrix *byteMatrix) {
	for x := 0; x < 8; x++ {
		if xStart+x < matrix.width {
			matrix.set(xStart+x, yStart, 0)
		}
	}
}

func embedFixtureVSep(xStart, yStart int, matrix *byteMatrix) {
	for y := 0; y < 7; y++ {
		if yStart+y < matrix.height {
			matrix.set(xStart, yStart+y, 0)
		}
	}
}

func embedFixtureAlignmentPatterns(version *Version, matrix *byteMatrix) {
	centers := version.AlignmentPatternCenters
	for _, cy := range centers {
		for _, cx := range centers {
			if matrix.get(cx, cy) != 0xFF {
				continue
			}
			for y := 0; y < 5; y++ {
				for x := 0; x < 5; x++ {
					matrix.set(cx-2+x, cy-2+y, fixturePositionAdjustmentPattern[y][x])
				}
			}
		}
	}
}

func embedFixtureTimingPatterns(matrix *byteMatrix) {
	for i := 8; i < matrix.width-8; i++ {
		bit := byte((i + 1) % 2)
		if matrix.get(i, 6) == 0xFF {
			matrix.set(i, 6, bit)
		}
		if matrix.get(6, i) == 0xFF {
			matrix.set(6, i, bit)
		}
	}
}

const (
	fixtureTypeInfoPoly        = 0x537
	fixtureTypeInfoMaskPattern = 0x5412
	fixtureVersionInfoPoly     = 0x1f25
)

func embedFixtureTypeInfo(ecLevel ErrorCorrectionLevel, maskPattern int, matrix *byteMatrix) {
	typeInfo := (ecLevel.Bits() << 3) | maskPattern
	bchCode := fixtureBCHCode(typeInfo, fixtureTypeInfoPoly)
	typeInfoBits := (typeInfo << 10) | bchCode
	typeInfoBits ^= fixtureTypeInfoMaskPattern

	coords := [][2]int{
		{8, 0}, {8, 1}, {8, 2}, {8, 3}, {8, 4}, {8, 5}, {8, 7}, {8, 8},
		{7, 8}, {5, 8}, {4, 8}, {3, 8}, {2, 8}, {1, 8}, {0, 8},
	}
	for i := 0; i < 15; i++ {
		bit := byte((typeInfoBits >> uint(i)) & 1)
		c := coords[i]
		matrix.set(c[0], c[1], bit)
		if i < 8 {
			matrix.set(matrix.width-1-i, 8, bit)
		} else {
			matrix.set(8, matrix.height-7+(i-8), bit)
		}
	}
}

func maybeEmbedFixtureVersionInfo(version *Version, matrix *byteMatrix) {
	if version.Number < 7 {
		return
	}
	versionInfoBits := fixtureBCHCode(version.Number, fixtureVersionInfoPoly)
	versionInfoBits = (version.Number << 12) | versionInfoBits

	bitIndex := 0
	for i := 0; i < 6; i++ {
		for j := 0; j < 3; j++ {
			bit := byte((versionInfoBits >> uint(bitIndex)) & 1)
			bitIndex++
			matrix.set(i, matrix.height-11+j, bit)
			matrix.set(matrix.width-11+j, i, bit)
		}
	}
}

func embedFixtureDataBits(dataBits *bitutil.BitArray, maskPattern int, matrix *byteMatrix) {
	bitIndex := 0
	dimension := matrix.height

	for j := dimension - 1; j > 0; j -= 2 {
		if j == 6 {
			j--
		}
		for count := 0; count < dimension; count++ {
			upward := (((dimension - 1 - j) / 2) & 1) == 0
			i := count
			if upward {
				i = dimension - 1 - count
			}
			for col := 0; col < 2; col++ {
				x := j - col
				if matrix.get(x, i) == 0xFF {
					var bit bool
					if bitIndex < dataBits.Size() {
						bit = dataBits.Get(bitIndex)
						bitIndex++
					}
					if DataMasks[maskPattern](i, x) {
						bit = !bit
					}
					if bit {
						matrix.set(x, i, 1)
					} else {
						matrix.set(x, i, 0)
					}
				}
			}
		}
	}
}

func fixtureBCHCode(value, poly int) int {
	msbSetInPoly := fixtureFindMSBSet(poly)
	value <<= uint(msbSetInPoly - 1)
	for fixtureFindMSBSet(value) >= msbSetInPoly {
		value ^= poly << uint(fixtureFindMSBSet(value)-msbSetInPoly)
	}
	return value
}

func fixtureFindMSBSet(value int) int {
	count := 0
	for value != 0 {
		value >>= 1
		count++
	}
	return count
}
