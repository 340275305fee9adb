// WAConnect Go - WhatsApp API Gateway
// Copyright (c) 2026 VertexHub
// Licensed under MIT License
// https://github.com/vertexhub/waconnect-go

package noise

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// CertChain{ leaf: NoiseCertificate, intermediate: NoiseCertificate } and
// NoiseCertificate{ details: bytes, signature: bytes } field numbers, with
// Details{ serial, issuerSerial, key } nested inside the details bytes.
const (
	certFieldLeaf         protowire.Number = 1
	certFieldIntermediate protowire.Number = 2

	certFieldDetails protowire.Number = 1

	certDetailsFieldIssuerSerial protowire.Number = 2
)

// ExpectedIntermediateIssuerSerial is the hard-coded value WhatsApp's
// intermediate certificate must carry; see spec §6.2.
const ExpectedIntermediateIssuerSerial = 0

// verifyCertChain parses the server's ServerHello payload as a CertChain and
// checks that the intermediate certificate's issuer serial matches the
// hard-coded expected value.
func verifyCertChain(data []byte) error {
	if _, ok := findBytesField(data, certFieldLeaf); !ok {
		return fmt.Errorf("noise: cert chain missing leaf certificate")
	}
	intermediate, ok := findBytesField(data, certFieldIntermediate)
	if !ok {
		return fmt.Errorf("noise: cert chain missing intermediate certificate")
	}
	details, ok := findBytesField(intermediate, certFieldDetails)
	if !ok {
		return fmt.Errorf("noise: intermediate certificate missing details")
	}
	issuerSerial, ok := findVarintField(details, certDetailsFieldIssuerSerial)
	if !ok {
		return fmt.Errorf("noise: intermediate certificate details missing issuer serial")
	}
	if issuerSerial != ExpectedIntermediateIssuerSerial {
		return fmt.Errorf("noise: intermediate issuer serial %d does not match expected %d", issuerSerial, ExpectedIntermediateIssuerSerial)
	}
	return nil
}
