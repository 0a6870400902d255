// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

package x509der

import (
	encoding_asn1 "encoding/asn1"
	"math/big"
	"time"

	"golang.org/x/crypto/cryptobyte"
	cryptobyte_asn1 "golang.org/x/crypto/cryptobyte/asn1"
)

// Context-specific tags used inside TBSCertificate.
var (
	tagVersion         = cryptobyte_asn1.Tag(0).Constructed().ContextSpecific()
	tagIssuerUniqueID  = cryptobyte_asn1.Tag(1).ContextSpecific()
	tagSubjectUniqueID = cryptobyte_asn1.Tag(2).ContextSpecific()
	tagExtensions      = cryptobyte_asn1.Tag(3).Constructed().ContextSpecific()
)

// Parse decodes a single DER-encoded X.509 certificate. The input must hold
// exactly one certificate: any bytes after it yield ErrTrailingData, and any
// structural defect yields ErrMalformed.
func Parse(der []byte) (*Certificate, error) {
	input := cryptobyte.String(der)

	var certElem cryptobyte.String
	if !input.ReadASN1Element(&certElem, cryptobyte_asn1.SEQUENCE) {
		return nil, malformed("certificate")
	}
	if !input.Empty() {
		return nil, trailing("certificate", len(input))
	}

	cert := &Certificate{Raw: []byte(certElem)}

	var body cryptobyte.String
	if !certElem.ReadASN1(&body, cryptobyte_asn1.SEQUENCE) {
		return nil, malformed("certificate")
	}

	var tbsElem cryptobyte.String
	if !body.ReadASN1Element(&tbsElem, cryptobyte_asn1.SEQUENCE) {
		return nil, malformed("tbsCertificate")
	}
	cert.RawTBSCertificate = []byte(tbsElem)
	if err := parseTBSCertificate(tbsElem, cert); err != nil {
		return nil, err
	}

	if !readAlgorithmIdentifier(&body, &cert.SignatureAlgorithm) {
		return nil, malformed("signatureAlgorithm")
	}

	var sig encoding_asn1.BitString
	if !body.ReadASN1BitString(&sig) {
		return nil, malformed("signatureValue")
	}
	cert.SignatureValue = sig.Bytes

	if !body.Empty() {
		return nil, trailing("signatureValue", len(body))
	}

	return cert, nil
}

// ParseSubjectPublicKeyInfo decodes a standalone DER SubjectPublicKeyInfo,
// such as the association data of a TLSA "x 1 0" record or the body of a
// PEM "PUBLIC KEY" block.
func ParseSubjectPublicKeyInfo(der []byte) (*SubjectPublicKeyInfo, error) {
	input := cryptobyte.String(der)

	var elem cryptobyte.String
	if !input.ReadASN1Element(&elem, cryptobyte_asn1.SEQUENCE) {
		return nil, malformed("subjectPublicKeyInfo")
	}
	if !input.Empty() {
		return nil, trailing("subjectPublicKeyInfo", len(input))
	}

	spki := &SubjectPublicKeyInfo{}
	if err := parseSubjectPublicKeyInfo(elem, spki); err != nil {
		return nil, err
	}
	return spki, nil
}

func parseTBSCertificate(elem cryptobyte.String, cert *Certificate) error {
	var tbs cryptobyte.String
	if !elem.ReadASN1(&tbs, cryptobyte_asn1.SEQUENCE) {
		return malformed("tbsCertificate")
	}

	var version int
	if !tbs.ReadOptionalASN1Integer(&version, tagVersion, 0) {
		return malformed("version")
	}
	if version < 0 || version > 2 {
		return malformed("version")
	}
	cert.Version = version + 1

	serial := new(big.Int)
	if !tbs.ReadASN1Integer(serial) {
		return malformed("serialNumber")
	}
	cert.SerialNumber = serial

	if !readAlgorithmIdentifier(&tbs, &cert.Signature) {
		return malformed("signature")
	}

	var issuer cryptobyte.String
	if !tbs.ReadASN1Element(&issuer, cryptobyte_asn1.SEQUENCE) || !checkName(issuer) {
		return malformed("issuer")
	}
	cert.RawIssuer = []byte(issuer)

	var validity cryptobyte.String
	if !tbs.ReadASN1(&validity, cryptobyte_asn1.SEQUENCE) {
		return malformed("validity")
	}
	if !readTime(&validity, &cert.NotBefore) || !readTime(&validity, &cert.NotAfter) {
		return malformed("validity")
	}
	if !validity.Empty() {
		return trailing("validity", len(validity))
	}

	var subject cryptobyte.String
	if !tbs.ReadASN1Element(&subject, cryptobyte_asn1.SEQUENCE) || !checkName(subject) {
		return malformed("subject")
	}
	cert.RawSubject = []byte(subject)

	var spki cryptobyte.String
	if !tbs.ReadASN1Element(&spki, cryptobyte_asn1.SEQUENCE) {
		return malformed("subjectPublicKeyInfo")
	}
	if err := parseSubjectPublicKeyInfo(spki, &cert.SubjectPublicKeyInfo); err != nil {
		return err
	}

	for _, tag := range []cryptobyte_asn1.Tag{tagIssuerUniqueID, tagSubjectUniqueID} {
		var uid cryptobyte.String
		var present bool
		if !tbs.ReadOptionalASN1(&uid, &present, tag) {
			return malformed("uniqueIdentifier")
		}
		if !present {
			continue
		}
		if cert.Version < Version2 || len(uid) == 0 || uid[0] > 7 {
			return malformed("uniqueIdentifier")
		}
	}

	var extensions cryptobyte.String
	var hasExtensions bool
	if !tbs.ReadOptionalASN1(&extensions, &hasExtensions, tagExtensions) {
		return malformed("extensions")
	}
	if hasExtensions {
		if cert.Version != Version3 {
			return malformed("extensions")
		}
		exts, err := parseExtensions(extensions)
		if err != nil {
			return err
		}
		cert.Extensions = exts
	}

	if !tbs.Empty() {
		return trailing("tbsCertificate", len(tbs))
	}
	return nil
}

func parseSubjectPublicKeyInfo(elem cryptobyte.String, out *SubjectPublicKeyInfo) error {
	out.Raw = []byte(elem)

	var seq cryptobyte.String
	if !elem.ReadASN1(&seq, cryptobyte_asn1.SEQUENCE) {
		return malformed("subjectPublicKeyInfo")
	}
	if !readAlgorithmIdentifier(&seq, &out.Algorithm) {
		return malformed("subjectPublicKeyInfo algorithm")
	}

	var key encoding_asn1.BitString
	if !seq.ReadASN1BitString(&key) {
		return malformed("subjectPublicKey")
	}
	if !seq.Empty() {
		return trailing("subjectPublicKey", len(seq))
	}

	out.PublicKey = key.Bytes
	out.BitLength = key.BitLength
	return nil
}

// parseExtensions decodes the body of the [3] EXPLICIT extensions field.
func parseExtensions(explicit cryptobyte.String) ([]Extension, error) {
	var seq cryptobyte.String
	if !explicit.ReadASN1(&seq, cryptobyte_asn1.SEQUENCE) || !explicit.Empty() {
		return nil, malformed("extensions")
	}
	if seq.Empty() {
		return nil, malformed("extensions")
	}

	var exts []Extension
	for !seq.Empty() {
		var extSeq cryptobyte.String
		if !seq.ReadASN1(&extSeq, cryptobyte_asn1.SEQUENCE) {
			return nil, malformed("extension")
		}

		var ext Extension
		if !extSeq.ReadASN1ObjectIdentifier(&ext.ID) {
			return nil, malformed("extension id")
		}
		if extSeq.PeekASN1Tag(cryptobyte_asn1.BOOLEAN) {
			if !extSeq.ReadASN1Boolean(&ext.Critical) {
				return nil, malformed("extension critical flag")
			}
		}

		var value cryptobyte.String
		if !extSeq.ReadASN1(&value, cryptobyte_asn1.OCTET_STRING) {
			return nil, malformed("extension value")
		}
		if !extSeq.Empty() {
			return nil, trailing("extension", len(extSeq))
		}
		ext.Value = []byte(value)
		exts = append(exts, ext)
	}
	return exts, nil
}

func readAlgorithmIdentifier(s *cryptobyte.String, out *AlgorithmIdentifier) bool {
	var seq cryptobyte.String
	if !s.ReadASN1(&seq, cryptobyte_asn1.SEQUENCE) {
		return false
	}
	if !seq.ReadASN1ObjectIdentifier(&out.Algorithm) {
		return false
	}
	if seq.Empty() {
		return true
	}

	var params cryptobyte.String
	var tag cryptobyte_asn1.Tag
	if !seq.ReadAnyASN1Element(&params, &tag) {
		return false
	}
	out.Parameters = []byte(params)
	return seq.Empty()
}

func readTime(s *cryptobyte.String, out *time.Time) bool {
	switch {
	case s.PeekASN1Tag(cryptobyte_asn1.UTCTime):
		return s.ReadASN1UTCTime(out)
	case s.PeekASN1Tag(cryptobyte_asn1.GeneralizedTime):
		return s.ReadASN1GeneralizedTime(out)
	}
	return false
}

// checkName reports whether der is a well-formed RDNSequence.
func checkName(der cryptobyte.String) bool {
	var rdns cryptobyte.String
	if !der.ReadASN1(&rdns, cryptobyte_asn1.SEQUENCE) || !der.Empty() {
		return false
	}

	for !rdns.Empty() {
		var set cryptobyte.String
		if !rdns.ReadASN1(&set, cryptobyte_asn1.SET) || set.Empty() {
			return false
		}
		for !set.Empty() {
			var atv cryptobyte.String
			if !set.ReadASN1(&atv, cryptobyte_asn1.SEQUENCE) {
				return false
			}
			var oid encoding_asn1.ObjectIdentifier
			if !atv.ReadASN1ObjectIdentifier(&oid) {
				return false
			}
			var value cryptobyte.String
			var tag cryptobyte_asn1.Tag
			if !atv.ReadAnyASN1Element(&value, &tag) || !atv.Empty() {
				return false
			}
		}
	}
	return true
}
