package boekhoud

import (
	"encoding/xml"
	"fmt"
)

const soapNamespace = "http://www.e-boekhouden.nl/soap/"

type soapEnvelope struct {
	XMLName xml.Name `xml:"soap:Envelope"`
	SoapNS  string   `xml:"xmlns:soap,attr"`
	Body    soapBody `xml:"soap:Body"`
}

type soapBody struct {
	Payload any
}

// marshalEnvelope wraps a request payload in a SOAP 1.1 envelope.
func marshalEnvelope(payload any) ([]byte, error) {
	env := soapEnvelope{
		SoapNS: "http://schemas.xmlsoap.org/soap/envelope/",
		Body:   soapBody{Payload: payload},
	}
	out, err := xml.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("failed to build soap envelope: %w", err)
	}
	return append([]byte(xml.Header), out...), nil
}

type openSessionRequest struct {
	XMLName       xml.Name `xml:"OpenSession"`
	NS            string   `xml:"xmlns,attr"`
	Username      string   `xml:"Username"`
	SecurityCode1 string   `xml:"SecurityCode1"`
	SecurityCode2 string   `xml:"SecurityCode2"`
}

type closeSessionRequest struct {
	XMLName   xml.Name `xml:"CloseSession"`
	NS        string   `xml:"xmlns,attr"`
	SessionID string   `xml:"SessionID"`
}

type addInvoiceRequest struct {
	XMLName   xml.Name   `xml:"AddInvoice"`
	NS        string     `xml:"xmlns,attr"`
	SessionID string     `xml:"SessionID"`
	Invoice   invoiceXML `xml:"oFactuur"`
}

type invoiceXML struct {
	Reference    string           `xml:"Factuurnummer"`
	CustomerName string           `xml:"RelatieNaam"`
	CustomerMail string           `xml:"RelatieEmail"`
	Date         string           `xml:"Factuurdatum"`
	Lines        []invoiceLineXML `xml:"Regels>Regel"`
}

type invoiceLineXML struct {
	Description string `xml:"Omschrijving"`
	Quantity    int    `xml:"Aantal"`
	UnitPrice   string `xml:"PrijsPerEenheid"`
	VATCode     string `xml:"BTWCode"`
}

type soapError struct {
	Code        string `xml:"LastErrorCode"`
	Description string `xml:"LastErrorDescription"`
}

type openSessionResponse struct {
	SessionID string    `xml:"Body>OpenSessionResponse>OpenSessionResult>SessionID"`
	Error     soapError `xml:"Body>OpenSessionResponse>OpenSessionResult>ErrorMsg"`
}

type addInvoiceResponse struct {
	InvoiceNumber string    `xml:"Body>AddInvoiceResponse>AddInvoiceResult>Factuurnummer"`
	Error         soapError `xml:"Body>AddInvoiceResponse>AddInvoiceResult>ErrorMsg"`
}
