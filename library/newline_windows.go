package library

const lineEnding = "\r\n"
