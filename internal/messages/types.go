package messages

import (
	"github.com/ethereum/go-ethereum/accounts/usbwallet/trezor"
)

// Wire type numbers for the messages defined in this package.
const (
	TypeFirmwareErase    uint16 = 6
	TypeFirmwareUpload   uint16 = 7
	TypeFirmwareRequest  uint16 = 8
	TypeGetPublicKey     uint16 = 11
	TypePublicKey        uint16 = 12
	TypeSignTx           uint16 = 15
	TypeTxRequest        uint16 = 21
	TypeTxAck            uint16 = 22
	TypeCipherKeyValue   uint16 = 23
	TypeGetAddress       uint16 = 29
	TypeAddress          uint16 = 30
	TypeSignMessage      uint16 = 38
	TypeVerifyMessage    uint16 = 39
	TypeMessageSignature uint16 = 40
	TypeCipheredKeyValue uint16 = 48
	TypeEncryptMessage   uint16 = 49
	TypeEncryptedMessage uint16 = 50
	TypeDecryptMessage   uint16 = 51
	TypeDecryptedMessage uint16 = 52
	TypeNEMGetAddress    uint16 = 67
	TypeNEMAddress       uint16 = 68
	TypeNEMSignTx        uint16 = 69
	TypeNEMSignedTx      uint16 = 70
	TypeCosiCommit       uint16 = 71
	TypeCosiCommitment   uint16 = 72
	TypeCosiSign         uint16 = 73
	TypeCosiSignature    uint16 = 74
)

var localNames = map[uint16]string{
	TypeFirmwareErase:    "FirmwareErase",
	TypeFirmwareUpload:   "FirmwareUpload",
	TypeFirmwareRequest:  "FirmwareRequest",
	TypeGetPublicKey:     "GetPublicKey",
	TypePublicKey:        "PublicKey",
	TypeSignTx:           "SignTx",
	TypeTxRequest:        "TxRequest",
	TypeTxAck:            "TxAck",
	TypeCipherKeyValue:   "CipherKeyValue",
	TypeGetAddress:       "GetAddress",
	TypeAddress:          "Address",
	TypeSignMessage:      "SignMessage",
	TypeVerifyMessage:    "VerifyMessage",
	TypeMessageSignature: "MessageSignature",
	TypeCipheredKeyValue: "CipheredKeyValue",
	TypeEncryptMessage:   "EncryptMessage",
	TypeEncryptedMessage: "EncryptedMessage",
	TypeDecryptMessage:   "DecryptMessage",
	TypeDecryptedMessage: "DecryptedMessage",
	TypeNEMGetAddress:    "NEMGetAddress",
	TypeNEMAddress:       "NEMAddress",
	TypeNEMSignTx:        "NEMSignTx",
	TypeNEMSignedTx:      "NEMSignedTx",
	TypeCosiCommit:       "CosiCommit",
	TypeCosiCommitment:   "CosiCommitment",
	TypeCosiSign:         "CosiSign",
	TypeCosiSignature:    "CosiSignature",
}

// Name returns a readable name for any wire type number.
func Name(kind uint16) string {
	if name, ok := localNames[kind]; ok {
		return name
	}
	if name := trezor.Name(kind); name != "" {
		return name
	}
	return "Unknown"
}
